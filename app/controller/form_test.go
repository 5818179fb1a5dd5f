package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/vibast-solutions/ms-go-website/app/dto"
	"github.com/vibast-solutions/ms-go-website/app/service"
)

type mockForms struct {
	result    service.FormResult
	contacts  []dto.ContactRequest
	brochures []dto.BrochureRequest
	metas     []service.RequestMeta
}

func (m *mockForms) SubmitContact(_ context.Context, req dto.ContactRequest, meta service.RequestMeta) service.FormResult {
	m.contacts = append(m.contacts, req)
	m.metas = append(m.metas, meta)
	return m.result
}

func (m *mockForms) SubmitBrochure(_ context.Context, req dto.BrochureRequest, meta service.RequestMeta) service.FormResult {
	m.brochures = append(m.brochures, req)
	m.metas = append(m.metas, meta)
	return m.result
}

func acceptedResult() service.FormResult {
	return service.FormResult{
		SubmissionID:    "sub-1",
		Notification:    service.DispatchResult{MessageID: "n-1", Delivered: true},
		Acknowledgement: service.DispatchResult{MessageID: "a-1", Delivered: true},
	}
}

func doJSON(t *testing.T, handler echo.HandlerFunc, body string) (*httptest.ResponseRecorder, FormResponse) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("User-Agent", "form-test")
	rec := httptest.NewRecorder()

	if err := handler(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler: %v", err)
	}

	var resp FormResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return rec, resp
}

func TestFormControllerContactSuccess(t *testing.T) {
	t.Parallel()

	forms := &mockForms{result: acceptedResult()}
	ctrl := NewFormController(forms, false)

	rec, resp := doJSON(t, ctrl.Contact, `{"name":"Jane Doe","email":"Jane@Example.com","message":"We need a new website.","type":"sales"}`)
	if rec.Code != http.StatusOK || !resp.Success || resp.Message != contactAccepted {
		t.Fatalf("unexpected response %d: %+v", rec.Code, resp)
	}
	if len(forms.contacts) != 1 || forms.contacts[0].Email != "jane@example.com" {
		t.Fatalf("expected normalized submission, got %+v", forms.contacts)
	}
	if forms.metas[0].UserAgent != "form-test" {
		t.Fatalf("expected user agent to be forwarded, got %+v", forms.metas[0])
	}
}

func TestFormControllerContactValidation(t *testing.T) {
	t.Parallel()

	forms := &mockForms{}
	ctrl := NewFormController(forms, false)

	rec, resp := doJSON(t, ctrl.Contact, `{"name":"J","email":"jane@example.com","message":"We need a new website."}`)
	if rec.Code != http.StatusBadRequest || resp.Success || resp.Error != dto.ErrNameRequired.Error() {
		t.Fatalf("unexpected response %d: %+v", rec.Code, resp)
	}
	if len(forms.contacts) != 0 {
		t.Fatalf("expected invalid submission not to be processed")
	}
}

func TestFormControllerContactInvalidBody(t *testing.T) {
	t.Parallel()

	ctrl := NewFormController(&mockForms{}, false)

	rec, resp := doJSON(t, ctrl.Contact, `{"name":`)
	if rec.Code != http.StatusBadRequest || resp.Error != "invalid request body" {
		t.Fatalf("unexpected response %d: %+v", rec.Code, resp)
	}
}

func TestFormControllerHoneypot(t *testing.T) {
	t.Parallel()

	forms := &mockForms{}
	ctrl := NewFormController(forms, true)

	rec, resp := doJSON(t, ctrl.Contact, `{"name":"Bot","email":"bot","message":"spam","website":"http://spam.example"}`)
	if rec.Code != http.StatusOK || !resp.Success {
		t.Fatalf("unexpected response %d: %+v", rec.Code, resp)
	}
	if len(forms.contacts) != 0 {
		t.Fatalf("expected honeypot submission to be dropped")
	}
}

func TestFormControllerDeliveryFailurePolicy(t *testing.T) {
	t.Parallel()

	failed := service.FormResult{
		Notification:    service.DispatchResult{MessageID: "n-1"},
		Acknowledgement: service.DispatchResult{MessageID: "a-1", Delivered: true},
	}
	body := `{"name":"Jane Doe","email":"jane@example.com","message":"We need a new website."}`

	lenient := NewFormController(&mockForms{result: failed}, false)
	rec, resp := doJSON(t, lenient.Contact, body)
	if rec.Code != http.StatusOK || !resp.Success {
		t.Fatalf("expected success by default, got %d: %+v", rec.Code, resp)
	}

	strict := NewFormController(&mockForms{result: failed}, true)
	rec, resp = doJSON(t, strict.Contact, body)
	if rec.Code != http.StatusBadGateway || resp.Success || resp.Error != deliveryFailed {
		t.Fatalf("expected 502 in strict mode, got %d: %+v", rec.Code, resp)
	}
}

func TestFormControllerStrictQueuedIsAccepted(t *testing.T) {
	t.Parallel()

	queued := service.FormResult{Notification: service.DispatchResult{MessageID: "n-1", Queued: true}}
	ctrl := NewFormController(&mockForms{result: queued}, true)

	rec, _ := doJSON(t, ctrl.Contact, `{"name":"Jane Doe","email":"jane@example.com","message":"We need a new website."}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected queued notification to count as accepted, got %d", rec.Code)
	}
}

func TestFormControllerBrochureForm(t *testing.T) {
	t.Parallel()

	forms := &mockForms{result: acceptedResult()}
	ctrl := NewFormController(forms, false)

	form := url.Values{}
	form.Set("name", "Jane Doe")
	form.Set("email", "jane@example.com")
	form.Set("company", "Doe & Co")

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/brochure", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()

	if err := ctrl.Brochure(e.NewContext(req, rec)); err != nil {
		t.Fatalf("Brochure: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(forms.brochures) != 1 || forms.brochures[0].Brochure != dto.DefaultBrochure {
		t.Fatalf("expected default brochure, got %+v", forms.brochures)
	}
}
