package models

import "fmt"

// Error codes carried by ScrapingError.
const (
	ErrCodeConfiguration = "CONFIGURATION_FAILED"
	ErrCodeBrowserLaunch = "BROWSER_LAUNCH_FAILED"
	ErrCodeNavigation    = "NAVIGATION_FAILED"
	ErrCodeExtraction    = "CONTENT_EXTRACTION_FAILED"
	ErrCodeSerialization = "SERIALIZATION_FAILED"
	ErrCodeTimeout       = "SCRAPE_TIMEOUT"
	ErrCodeInternal      = "INTERNAL_ERROR"
)

// ScrapingError is the operational failure of a scrape run. It carries an
// error code and supports error wrapping via Unwrap.
type ScrapingError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *ScrapingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ScrapingError) Unwrap() error {
	return e.Err
}

// NewScrapingError creates a new ScrapingError.
func NewScrapingError(code, message string, err error) *ScrapingError {
	return &ScrapingError{Code: code, Message: message, Err: err}
}
