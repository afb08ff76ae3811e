package health

// Service encapsulates health-related checks.
type Service struct {
	Version string
}

// NewService constructs a new health service.
func NewService(version string) *Service {
	return &Service{Version: version}
}

// Status returns a simple health payload.
func (s *Service) Status() map[string]string {
	status := map[string]string{"status": "ok"}
	if s != nil && s.Version != "" {
		status["version"] = s.Version
	}
	return status
}
