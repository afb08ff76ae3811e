//go:build tesseract

package main

import _ "efaktur-validator/internal/extract/tesseract"
