package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// FieldError mirrors one entry of the API's validation error list.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIError is a non-2xx response from the detailflow API.
type APIError struct {
	Status  int          `json:"-"`
	Type    string       `json:"type"`
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors,omitempty"`
}

func (e *APIError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
	}
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fe.Field+" "+fe.Message)
	}
	return fmt.Sprintf("api error %d: %s (%s)", e.Status, e.Message, strings.Join(parts, "; "))
}

type presignRequest struct {
	OrgSlug     string `json:"orgSlug"`
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
}

type presignResponse struct {
	PresignedURL string            `json:"presignedUrl"`
	PublicURL    string            `json:"publicUrl"`
	Key          string            `json:"key"`
	Headers      map[string]string `json:"headers"`
}

// IntakeRequest is the public intake form. Empty PhotoKeys are filled from DoneKeys.
type IntakeRequest struct {
	OrgSlug      string   `json:"orgSlug"`
	FirstName    string   `json:"firstName"`
	LastName     string   `json:"lastName"`
	Email        string   `json:"email"`
	Phone        string   `json:"phone"`
	VehicleYear  int      `json:"vehicleYear"`
	VehicleMake  string   `json:"vehicleMake"`
	VehicleModel string   `json:"vehicleModel"`
	VehicleColor string   `json:"vehicleColor"`
	Notes        string   `json:"notes,omitempty"`
	PhotoKeys    []string `json:"photoKeys"`
}

type IntakeResult struct {
	Success bool   `json:"success"`
	JobID   string `json:"jobId"`
}

// SubmitIntake posts the intake form with the finished photo keys.
func (c *Client) SubmitIntake(ctx context.Context, req IntakeRequest) (*IntakeResult, error) {
	if strings.TrimSpace(req.OrgSlug) == "" {
		req.OrgSlug = c.orgSlug
	}
	if len(req.PhotoKeys) == 0 {
		req.PhotoKeys = c.DoneKeys()
	}

	var out IntakeResult
	if err := c.postJSON(ctx, "/api/intake/submit", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) upload(ctx context.Context, file File) (string, string, error) {
	var cred presignResponse
	err := c.postJSON(ctx, "/api/uploads/presign", presignRequest{
		OrgSlug:     c.orgSlug,
		FileName:    file.Name,
		ContentType: file.ContentType,
	}, &cred)
	if err != nil {
		return "", "", fmt.Errorf("presign %s: %w", file.Name, err)
	}
	if cred.PresignedURL == "" || cred.Key == "" {
		return "", "", fmt.Errorf("presign %s: empty credential", file.Name)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, cred.PresignedURL, bytes.NewReader(file.Data))
	if err != nil {
		return "", "", err
	}
	req.ContentLength = int64(len(file.Data))
	for k, v := range cred.Headers {
		req.Header.Set(k, v)
	}
	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", file.ContentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("put %s: %w", file.Name, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", "", fmt.Errorf("put %s: unexpected status %d", file.Name, resp.StatusCode)
	}
	return cred.Key, cred.PublicURL, nil
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp.StatusCode, payload)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(payload, out)
}

func decodeAPIError(status int, payload []byte) error {
	var envelope struct {
		Error APIError `json:"error"`
	}
	apiErr := &APIError{Status: status, Message: http.StatusText(status)}
	if err := json.Unmarshal(payload, &envelope); err == nil && envelope.Error.Type != "" {
		envelope.Error.Status = status
		apiErr = &envelope.Error
	}
	return apiErr
}
