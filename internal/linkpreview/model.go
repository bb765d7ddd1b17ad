package linkpreview

import "encoding/json"

// ErrorType classifies why a single URL could not be resolved.
type ErrorType string

const (
	ErrorTypeUnauthorized     ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden        ErrorType = "FORBIDDEN"
	ErrorTypeRateLimited      ErrorType = "RATE_LIMITED"
	ErrorTypeServerError      ErrorType = "SERVER_ERROR"
	ErrorTypeNetworkError     ErrorType = "NETWORK_ERROR"
	ErrorTypeTimeout          ErrorType = "TIMEOUT"
	ErrorTypeInvalidResponse  ErrorType = "INVALID_RESPONSE"
	ErrorTypeLinkContentError ErrorType = "LINK_CONTENT_ERROR"
	ErrorTypeUnknown          ErrorType = "UNKNOWN"
)

// IsCommonCause reports whether t points at a systemic problem (credentials,
// quota, provider outage) rather than at the individual link.
func (t ErrorType) IsCommonCause() bool {
	switch t {
	case ErrorTypeUnauthorized, ErrorTypeForbidden, ErrorTypeRateLimited, ErrorTypeServerError:
		return true
	}
	return false
}

// ImageVariant is one rendition of a preview image.
type ImageVariant struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// ImageSet holds the named size variants returned by the provider.
type ImageSet struct {
	Thumbnail *ImageVariant `json:"thumbnail,omitempty"`
	Medium    *ImageVariant `json:"medium,omitempty"`
	Large     *ImageVariant `json:"large,omitempty"`
	Original  *ImageVariant `json:"original,omitempty"`
}

// Record is a successfully resolved link.
type Record struct {
	ID          string
	URL         string
	OriginalURL string
	Title       string
	Description string
	Domain      string
	SiteName    string
	Image       *ImageSet
}

// DisplayTitle returns the title, or the original URL when there is none.
func (r *Record) DisplayTitle() string {
	if r.Title != "" {
		return r.Title
	}
	return r.OriginalURL
}

// Failure is a typed resolution failure for one URL.
type Failure struct {
	URL     string
	Type    ErrorType
	Message string
}

// Outcome is the result of resolving one URL: exactly one of Record or
// Failure is set.
type Outcome struct {
	Record  *Record
	Failure *Failure
}

// Succeeded wraps r as a successful Outcome.
func Succeeded(r Record) Outcome {
	return Outcome{Record: &r}
}

// Failed builds a failed Outcome for url.
func Failed(url string, t ErrorType, message string) Outcome {
	return Outcome{Failure: &Failure{URL: url, Type: t, Message: message}}
}

// OK reports whether the outcome is a success.
func (o Outcome) OK() bool {
	return o.Record != nil
}

// OriginalURL is the input URL that produced the outcome.
func (o Outcome) OriginalURL() string {
	if o.Record != nil {
		return o.Record.OriginalURL
	}
	if o.Failure != nil {
		return o.Failure.URL
	}
	return ""
}

// previewJSON is the flattened wire shape consumed by the presentation layer.
type previewJSON struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	OriginalURL string    `json:"originalUrl"`
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	Domain      string    `json:"domain,omitempty"`
	SiteName    string    `json:"siteName,omitempty"`
	Image       *ImageSet `json:"image,omitempty"`
	OK          bool      `json:"ok"`
	Error       string    `json:"error,omitempty"`
	ErrorType   ErrorType `json:"errorType,omitempty"`
}

func (o Outcome) MarshalJSON() ([]byte, error) {
	var p previewJSON
	switch {
	case o.Record != nil:
		r := o.Record
		p = previewJSON{
			ID:          r.ID,
			URL:         r.URL,
			OriginalURL: r.OriginalURL,
			Title:       r.Title,
			Description: r.Description,
			Domain:      r.Domain,
			SiteName:    r.SiteName,
			Image:       r.Image,
			OK:          true,
		}
	case o.Failure != nil:
		f := o.Failure
		p = previewJSON{
			ID:          f.URL,
			URL:         f.URL,
			OriginalURL: f.URL,
			Error:       f.Message,
			ErrorType:   f.Type,
		}
	}
	return json.Marshal(p)
}

func (o *Outcome) UnmarshalJSON(data []byte) error {
	var p previewJSON
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if p.OK {
		*o = Succeeded(Record{
			ID:          p.ID,
			URL:         p.URL,
			OriginalURL: p.OriginalURL,
			Title:       p.Title,
			Description: p.Description,
			Domain:      p.Domain,
			SiteName:    p.SiteName,
			Image:       p.Image,
		})
		return nil
	}
	*o = Failed(p.OriginalURL, p.ErrorType, p.Error)
	return nil
}
