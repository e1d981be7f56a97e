package transport

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/agentstation/matchrules/pkg/errors"
	"github.com/agentstation/matchrules/pkg/logging"
)

// maxErrorBody bounds the part of an error response kept in APIError.Message.
const maxErrorBody = 4 << 10

// DecodeResponse decodes a JSON response of service into the target structure.
// Responses outside the 2xx range become an APIError.
func DecodeResponse(resp *http.Response, service string, target any) error {
	defer func() {
		if err := resp.Body.Close(); err != nil {
			// Log warning but don't override the main error
			logging.Warn().Err(err).Str("service", service).Msg("Failed to close response body")
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.WrapIO("read", "response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := strings.TrimSpace(string(body))
		if len(message) > maxErrorBody {
			message = message[:maxErrorBody]
		}
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		apiErr := errors.NewAPIError(service, resp.StatusCode, message)
		if resp.Request != nil && resp.Request.URL != nil {
			apiErr.Endpoint = resp.Request.URL.Path
		}
		return apiErr
	}

	if err := json.Unmarshal(body, target); err != nil {
		return errors.WrapParse("json", service+" response", err)
	}

	return nil
}
