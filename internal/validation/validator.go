// Package validation smoke-tests a running API instance against the HTTP
// contract. It is wired behind the "validate" argument of cmd/api.
package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"planet/internal/middleware"
	"planet/internal/models"
)

// ContractValidator drives a live server through the event and cart
// endpoints and checks status codes and response shapes.
type ContractValidator struct {
	baseURL string
	holder  string
	client  *http.Client
}

func NewContractValidator(baseURL string) *ContractValidator {
	return &ContractValidator{
		baseURL: baseURL,
		holder:  fmt.Sprintf("validator-%d", time.Now().UnixNano()),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// ValidateAll exercises the whole contract in order: event lifecycle first,
// then the cart flow against the created event.
func (v *ContractValidator) ValidateAll() error {
	log.Println("Validating API contract...")

	eventID, err := v.validateEvents()
	if err != nil {
		return fmt.Errorf("events validation failed: %w", err)
	}

	if err := v.validateCart(eventID); err != nil {
		return fmt.Errorf("cart validation failed: %w", err)
	}

	if err := v.validateLifecycle(eventID); err != nil {
		return fmt.Errorf("lifecycle validation failed: %w", err)
	}

	log.Println("All endpoints validated successfully")
	return nil
}

func (v *ContractValidator) validateEvents() (string, error) {
	log.Println("Validating event endpoints...")

	price := 10.0
	maxAttendees := 3
	name := fmt.Sprintf("Validation Run %d", time.Now().UnixNano())
	reqBody := models.CreateEventRequest{
		Name:         name,
		Description:  "contract validation event",
		Date:         models.EventDate(time.Now().AddDate(0, 1, 0)),
		Time:         "18:00",
		Location:     "Validation Hall",
		Price:        &price,
		MaxAttendees: &maxAttendees,
	}

	resp, err := v.makeRequest("POST", "/events", reqBody)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("POST /events: expected 201, got %d", resp.StatusCode)
	}

	var summary models.EventSummary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		return "", fmt.Errorf("POST /events: failed to decode response: %w", err)
	}
	resp.Body.Close()

	if summary.Name != name {
		return "", fmt.Errorf("POST /events: expected eventName %q, got %q", name, summary.Name)
	}
	if summary.CreatedAt == nil {
		return "", fmt.Errorf("POST /events: expected createdAt in response")
	}

	// A missing required field must come back as 400 with a message.
	bad := reqBody
	bad.MaxAttendees = nil
	resp, err = v.makeRequest("POST", "/events", bad)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusBadRequest {
		return "", fmt.Errorf("POST /events without maxAttendees: expected 400, got %d", resp.StatusCode)
	}
	var errResp models.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		return "", fmt.Errorf("POST /events: failed to decode error response: %w", err)
	}
	resp.Body.Close()
	if errResp.Message == "" {
		return "", fmt.Errorf("POST /events: expected error message")
	}

	resp, err = v.makeRequest("GET", "/events", nil)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("GET /events: expected 200, got %d", resp.StatusCode)
	}

	var events []models.Event
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		return "", fmt.Errorf("GET /events: failed to decode response: %w", err)
	}
	resp.Body.Close()

	eventID := ""
	for _, e := range events {
		if e.Name == name {
			eventID = e.ID
		}
	}
	if eventID == "" {
		return "", fmt.Errorf("GET /events: created event not in listing")
	}

	resp, err = v.makeRequest("GET", "/events/"+eventID, nil)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("GET /events/:id: expected 200, got %d", resp.StatusCode)
	}
	var event models.Event
	if err := json.NewDecoder(resp.Body).Decode(&event); err != nil {
		return "", fmt.Errorf("GET /events/:id: failed to decode response: %w", err)
	}
	resp.Body.Close()
	if event.SpotsLeft != maxAttendees {
		return "", fmt.Errorf("GET /events/:id: expected spotsLeft %d, got %d", maxAttendees, event.SpotsLeft)
	}

	log.Println("Event endpoints OK")
	return eventID, nil
}

func (v *ContractValidator) validateCart(eventID string) error {
	log.Println("Validating cart endpoints...")

	quantity := 2
	resp, err := v.makeRequest("POST", "/events/"+eventID+"/cart", models.AddToCartRequest{Quantity: &quantity})
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("POST /events/:id/cart: expected 201, got %d", resp.StatusCode)
	}
	var reservation models.Reservation
	if err := json.NewDecoder(resp.Body).Decode(&reservation); err != nil {
		return fmt.Errorf("POST /events/:id/cart: failed to decode response: %w", err)
	}
	resp.Body.Close()
	if reservation.Quantity != 2 {
		return fmt.Errorf("POST /events/:id/cart: expected quantity 2, got %d", reservation.Quantity)
	}

	// Capacity is 3; asking for 2 more must conflict.
	resp, err = v.makeRequest("POST", "/events/"+eventID+"/cart", models.AddToCartRequest{Quantity: &quantity})
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusConflict {
		return fmt.Errorf("POST /events/:id/cart over capacity: expected 409, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, err = v.makeRequest("GET", "/cart", nil)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET /cart: expected 200, got %d", resp.StatusCode)
	}
	var cart []models.Reservation
	if err := json.NewDecoder(resp.Body).Decode(&cart); err != nil {
		return fmt.Errorf("GET /cart: failed to decode response: %w", err)
	}
	resp.Body.Close()
	if len(cart) == 0 {
		return fmt.Errorf("GET /cart: expected non-empty cart")
	}

	resp, err = v.makeRequest("DELETE", "/events/"+eventID+"/cart", nil)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("DELETE /events/:id/cart: expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Second removal has nothing to claim.
	resp, err = v.makeRequest("DELETE", "/events/"+eventID+"/cart", nil)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("repeated DELETE /events/:id/cart: expected 404, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	log.Println("Cart endpoints OK")
	return nil
}

func (v *ContractValidator) validateLifecycle(eventID string) error {
	log.Println("Validating lifecycle endpoints...")

	resp, err := v.makeRequest("POST", "/events/"+eventID+"/cancel", nil)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("POST /events/:id/cancel: expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, err = v.makeRequest("POST", "/events/"+eventID+"/cart", nil)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusConflict {
		return fmt.Errorf("POST /events/:id/cart after cancel: expected 409, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, err = v.makeRequest("DELETE", "/events/"+eventID, nil)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("DELETE /events/:id: expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, err = v.makeRequest("GET", "/events/"+eventID, nil)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("GET /events/:id after delete: expected 404, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	log.Println("Lifecycle endpoints OK")
	return nil
}

func (v *ContractValidator) makeRequest(method, path string, body interface{}) (*http.Response, error) {
	var reader *bytes.Buffer
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewBuffer(jsonBody)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, v.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(middleware.HolderHeader, v.holder)

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}

	return resp, nil
}

// RunValidation checks a locally running API instance.
func RunValidation() {
	baseURL := "http://localhost:8080"

	validator := NewContractValidator(baseURL)
	if err := validator.ValidateAll(); err != nil {
		log.Fatalf("Validation failed: %v", err)
	}
}
