// Tablemates - Social Dinner Event Booking Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestDoAttachesBothAuthHeaders(t *testing.T) {
	t.Parallel()

	var gotLegacy, gotBearer, gotRequestID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLegacy = r.Header.Get("x-auth-token")
		gotBearer = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-ID")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	c.SetTokenSource(func() string { return "tok-1" })

	if err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/events"}); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if gotLegacy != "tok-1" {
		t.Errorf("x-auth-token = %q, want tok-1", gotLegacy)
	}
	if gotBearer != "Bearer tok-1" {
		t.Errorf("Authorization = %q, want Bearer tok-1", gotBearer)
	}
	if gotRequestID == "" {
		t.Error("X-Request-ID header missing")
	}
}

func TestDoAnonymousWhenNoToken(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-auth-token") != "" || r.Header.Get("Authorization") != "" {
			t.Error("anonymous request must not carry auth headers")
		}
		io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	c.SetTokenSource(func() string { return "" })

	if err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/events"}); err != nil {
		t.Fatalf("Do: %v", err)
	}
}

func TestDoClassifiesTimeout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Timeout: 20 * time.Millisecond})
	err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/events"})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if got := UserMessage(err, "fallback"); got != TimeoutMessage {
		t.Errorf("UserMessage = %q, want %q", got, TimeoutMessage)
	}
}

func TestDoClassifiesNoResponse(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	c := New(Config{BaseURL: srv.URL})
	err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/events"})
	if !errors.Is(err, ErrNoResponse) {
		t.Fatalf("err = %v, want ErrNoResponse", err)
	}
	if got := UserMessage(err, "fallback"); got != "fallback" {
		t.Errorf("UserMessage = %q, want fallback", got)
	}
}

func TestDoDecodesAPIError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		status     int
		body       string
		wantDetail string
	}{
		{
			name:       "single message",
			status:     http.StatusForbidden,
			body:       `{"message":"Only the creator can update this event"}`,
			wantDetail: "Only the creator can update this event",
		},
		{
			name:       "field errors joined",
			status:     http.StatusBadRequest,
			body:       `{"errors":[{"msg":"Title is required","param":"title"},{"msg":"Location is required","param":"location"}]}`,
			wantDetail: "Title is required, Location is required",
		},
		{
			name:       "field errors win over message",
			status:     http.StatusBadRequest,
			body:       `{"message":"Validation failed","errors":[{"msg":"Capacity out of range"}]}`,
			wantDetail: "Capacity out of range",
		},
		{
			name:       "non-JSON body falls back to status text",
			status:     http.StatusBadGateway,
			body:       `<html>bad gateway</html>`,
			wantDetail: http.StatusText(http.StatusBadGateway),
		},
		{
			name:       "empty body falls back to status text",
			status:     http.StatusNotFound,
			body:       ``,
			wantDetail: http.StatusText(http.StatusNotFound),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			c := New(Config{BaseURL: srv.URL})
			err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/x"})

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("err = %v, want *APIError", err)
			}
			if apiErr.Status != tt.status {
				t.Errorf("Status = %d, want %d", apiErr.Status, tt.status)
			}
			if apiErr.Detail() != tt.wantDetail {
				t.Errorf("Detail() = %q, want %q", apiErr.Detail(), tt.wantDetail)
			}
		})
	}
}

func TestUnauthorizedHookFiresForNonLoginPaths(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"message":"invalid token"}`)
	}))
	defer srv.Close()

	var fired int
	c := New(Config{BaseURL: srv.URL})
	c.SetUnauthorizedHandler(func() { fired++ })

	err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/events"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || !apiErr.Unauthorized() {
		t.Fatalf("err = %v, want unauthorized *APIError", err)
	}
	if fired != 1 {
		t.Errorf("hook fired %d times, want 1", fired)
	}
}

func TestUnauthorizedHookSkipsLoginPath(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"message":"Invalid credentials"}`)
	}))
	defer srv.Close()

	var fired int
	c := New(Config{BaseURL: srv.URL})
	c.SetUnauthorizedHandler(func() { fired++ })

	err := c.Do(context.Background(), Request{
		Method:    http.MethodPost,
		Path:      "/users/login",
		LoginPath: true,
		Body:      map[string]string{"email": "a@b.c", "password": "nope"},
	})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Detail() != "Invalid credentials" {
		t.Errorf("Detail() = %q, want server message verbatim", apiErr.Detail())
	}
	if fired != 0 {
		t.Errorf("hook fired %d times for login path, want 0", fired)
	}
}

func TestDoDecodesResponseBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"data":{"value":42}}`)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	var out struct {
		Data struct {
			Value int `json:"value"`
		} `json:"data"`
	}
	if err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/x", Out: &out}); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if out.Data.Value != 42 {
		t.Errorf("decoded value = %d, want 42", out.Data.Value)
	}
}

func TestDoSendsMultipart(t *testing.T) {
	t.Parallel()

	var gotContentType, gotTitle, gotFile string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			return
		}
		gotTitle = r.FormValue("title")
		f, _, err := r.FormFile("image")
		if err != nil {
			t.Errorf("form file: %v", err)
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		gotFile = string(data)
		io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	err := c.Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/events",
		Multipart: &MultipartPayload{
			Fields:    map[string]string{"title": "Dinner A"},
			FileField: "image",
			FileName:  "dinner.jpg",
			File:      strings.NewReader("jpegbytes"),
		},
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if !strings.HasPrefix(gotContentType, "multipart/form-data") {
		t.Errorf("Content-Type = %q, want multipart/form-data", gotContentType)
	}
	if gotTitle != "Dinner A" {
		t.Errorf("title field = %q, want Dinner A", gotTitle)
	}
	if gotFile != "jpegbytes" {
		t.Errorf("file contents = %q, want jpegbytes", gotFile)
	}
}

func TestBreakerCountsServerFaultsNotRejections(t *testing.T) {
	t.Parallel()

	var status int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		io.WriteString(w, `{"message":"x"}`)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, BreakerEnabled: true})

	// A 5xx still yields a usable *APIError to the caller.
	status = http.StatusInternalServerError
	err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/x"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusInternalServerError {
		t.Fatalf("err = %v, want 500 *APIError", err)
	}

	// A 4xx passes through the breaker without counting as a fault.
	status = http.StatusForbidden
	err = c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/x"})
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusForbidden {
		t.Fatalf("err = %v, want 403 *APIError", err)
	}
}

func TestUserMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		fallback string
		want     string
	}{
		{"nil error", nil, "f", ""},
		{"timeout", ErrTimeout, "f", TimeoutMessage},
		{"api error detail", &APIError{Status: 403, Message: "Admins only"}, "f", "Admins only"},
		{"no response falls back", ErrNoResponse, "Failed to join event", "Failed to join event"},
		{"plain error falls back", errors.New("boom"), "f", "f"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := UserMessage(tt.err, tt.fallback); got != tt.want {
				t.Errorf("UserMessage = %q, want %q", got, tt.want)
			}
		})
	}
}
