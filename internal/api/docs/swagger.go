package docs

import (
	"github.com/go-swagno/swagno"
	"github.com/go-swagno/swagno/components/endpoint"
	"github.com/go-swagno/swagno/components/http/response"
	"github.com/go-swagno/swagno/components/mime"
	"github.com/go-swagno/swagno/components/parameter"

	"github.com/saturnino-fabrica-de-software/verifica/internal/domain"
	"github.com/saturnino-fabrica-de-software/verifica/internal/liveness"
)

// ErrorBody is the payload inside every error response
type ErrorBody struct {
	Code    string `json:"code" example:"VALIDATION_FAILED"`
	Message string `json:"message" example:"Request validation failed"`
	Detail  string `json:"detail,omitempty" example:"selfie_far is required"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// HealthResponse mirrors the /ready payload
type HealthResponse struct {
	Status  string            `json:"status" example:"ready"`
	Version string            `json:"version,omitempty" example:"1.0.0"`
	Checks  map[string]string `json:"checks,omitempty"`
}

func errResp(code, message, status, description string) response.Response {
	return response.New(ErrorResponse{Error: ErrorBody{Code: code, Message: message}}, status, description)
}

var (
	errValidation = errResp("VALIDATION_FAILED", "Request validation failed", "422", "Missing or malformed field")
	errImage      = errResp("INVALID_IMAGE", "Invalid image format or corrupted file", "422", "Unprocessable Entity")
	errRateLimit  = errResp("RATE_LIMIT_EXCEEDED", "Rate limit exceeded, please try again later", "429", "Too Many Requests")
	errTimeout    = errResp("PROCESSING_TIMEOUT", "Processing did not finish within the time budget", "408", "Request Timeout")
	errInternal   = errResp("INTERNAL_ERROR", "An unexpected error occurred", "500", "Internal Server Error")
)

var multipartForm = []mime.MIME{mime.MIME("multipart/form-data")}

func NewSwagger() *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "Verifica Identity Verification API",
		Version:     "v1.0.0",
		Description: "Document extraction, face comparison and liveness checks for Mexican INE credentials",
		Host:        "localhost:3000",
		Path:        "/v1",
	})

	endpoints := []*endpoint.EndPoint{
		// POST /v1/documents - Extract and cross-validate an INE
		endpoint.New(
			endpoint.POST,
			"/documents",
			endpoint.WithTags("Documents"),
			endpoint.WithSummary("Extract identity fields from both sides of an INE"),
			endpoint.WithDescription("Upload \"front\" and \"back\" images. Fields are merged front-first and the CURP and elector key are cross-checked between sides."),
			endpoint.WithConsume(multipartForm),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("strict", parameter.Query, parameter.WithDescription("When true, a front/back mismatch is an error instead of a flag")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(domain.ProcessedDocument{}, "200", "Document processed"),
			}),
			endpoint.WithErrors([]response.Response{
				errValidation,
				errImage,
				errResp("INCONSISTENT_DOCUMENT_DATA", "Front and back of the document do not match", "422", "Strict mode mismatch"),
				errTimeout,
				errRateLimit,
				errInternal,
			}),
		),

		// POST /v1/faces/compare - Similarity of two faces
		endpoint.New(
			endpoint.POST,
			"/faces/compare",
			endpoint.WithTags("Faces"),
			endpoint.WithSummary("Compare two face images"),
			endpoint.WithDescription("Upload \"image_a\" and \"image_b\". Uses the deep embedding model when available and facial geometry otherwise."),
			endpoint.WithConsume(multipartForm),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(domain.Comparison{}, "200", "Comparison completed"),
			}),
			endpoint.WithErrors([]response.Response{
				errValidation,
				errImage,
				errResp("NO_FACE_DETECTED", "No face detected in the image", "422", "Unprocessable Entity"),
				errRateLimit,
				errInternal,
			}),
		),

		// POST /v1/verifications - Document face vs two selfies
		endpoint.New(
			endpoint.POST,
			"/verifications",
			endpoint.WithTags("Faces"),
			endpoint.WithSummary("Decide whether a person matches their document"),
			endpoint.WithDescription("Upload \"document_face\", \"selfie_near\" and \"selfie_far\". Optional form fields (nombre_completo, curp, clave_elector...) are echoed in the result. A failed comparison is scored as zero, never an error."),
			endpoint.WithConsume(multipartForm),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(domain.VerificationResult{}, "200", "Decision reached"),
			}),
			endpoint.WithErrors([]response.Response{
				errValidation,
				errImage,
				errTimeout,
				errRateLimit,
				errInternal,
			}),
		),

		// POST /v1/liveness/passive - Micro-movement check
		endpoint.New(
			endpoint.POST,
			"/liveness/passive",
			endpoint.WithTags("Liveness"),
			endpoint.WithSummary("Passive liveness from a burst of frames"),
			endpoint.WithDescription("Upload at least 5 images under repeated \"frames\" parts. Passes when eye and mouth openness show natural variation."),
			endpoint.WithConsume(multipartForm),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(liveness.PassiveResult{}, "200", "Check completed"),
			}),
			endpoint.WithErrors([]response.Response{
				errValidation,
				errImage,
				errTimeout,
				errRateLimit,
				errInternal,
			}),
		),

		// GET /v1/liveness/ws - Interactive challenge
		endpoint.New(
			endpoint.GET,
			"/liveness/ws",
			endpoint.WithTags("Liveness"),
			endpoint.WithSummary("Active liveness challenge over WebSocket"),
			endpoint.WithDescription("Upgrade to a WebSocket and stream JPEG frames as binary messages. The server emits challenge, progress and result events."),
			endpoint.WithParams(
				parameter.StrParam("challenge", parameter.Query, parameter.WithDescription("blink, turn_left, turn_right or smile; random when absent")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(liveness.Result{}, "101", "Switching Protocols; the final result event carries this payload"),
			}),
			endpoint.WithErrors([]response.Response{
				errResp("HTTP_ERROR", "Upgrade Required", "426", "Not a WebSocket request"),
			}),
		),
	}

	sw.AddEndpoints(endpoints)

	return sw
}
