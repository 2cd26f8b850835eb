package scan

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jmespath/go-jmespath"

	"github.com/Ramsey-B/clover/pkg/models"
)

// Profile maps a provider's raw document onto receipt content fields.
// Every field is a JMESPath expression evaluated against the document;
// an expression that resolves to nothing leaves the field null.
type Profile struct {
	Provider     string `json:"provider"`
	TotalAmount  string `json:"total_amount"`
	PurchaseDate string `json:"purchase_date"`
	StoreName    string `json:"store_name"`
	Currency     string `json:"currency"`
	Items        string `json:"items"`
}

// DefaultProfile covers providers that already emit the portal's flat
// document shape.
func DefaultProfile() Profile {
	return Profile{
		Provider:     "default",
		TotalAmount:  "total_amount",
		PurchaseDate: "purchase_date",
		StoreName:    "store_name",
		Currency:     "currency",
		Items:        "items",
	}
}

// Extractor evaluates extraction profiles against provider documents.
// Compiled expressions are cached; profiles are static per deployment.
type Extractor struct {
	profiles map[string]Profile
	cache    map[string]*jmespath.JMESPath
	mu       sync.RWMutex
}

// NewExtractor creates an extractor with the default profile registered
func NewExtractor() *Extractor {
	e := &Extractor{
		profiles: make(map[string]Profile),
		cache:    make(map[string]*jmespath.JMESPath),
	}
	e.Register(DefaultProfile())
	return e
}

// Register adds or replaces a provider profile
func (e *Extractor) Register(profile Profile) {
	e.mu.Lock()
	e.profiles[profile.Provider] = profile
	e.mu.Unlock()
}

// ProfileFor returns the profile registered for a provider, falling
// back to the default profile.
func (e *Extractor) ProfileFor(provider string) Profile {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if p, ok := e.profiles[provider]; ok {
		return p
	}
	return e.profiles["default"]
}

// Extract maps a provider document onto an upsert request for the
// receipt content row. Amounts and dates stay raw strings; they are
// parsed leniently only when a relationship context is built.
func (e *Extractor) Extract(provider string, doc map[string]any) (*models.UpsertReceiptContentRequest, error) {
	profile := e.ProfileFor(provider)

	req := &models.UpsertReceiptContentRequest{
		Provider: provider,
	}

	var err error
	if req.TotalAmount, err = e.extractString(profile.TotalAmount, doc); err != nil {
		return nil, err
	}
	if req.PurchaseDate, err = e.extractString(profile.PurchaseDate, doc); err != nil {
		return nil, err
	}
	if req.StoreName, err = e.extractString(profile.StoreName, doc); err != nil {
		return nil, err
	}
	if req.Currency, err = e.extractString(profile.Currency, doc); err != nil {
		return nil, err
	}
	if req.Items, err = e.extractJSON(profile.Items, doc); err != nil {
		return nil, err
	}

	return req, nil
}

// extractString evaluates an expression and renders the result as a
// string. Nil results and empty expressions yield nil.
func (e *Extractor) extractString(expression string, doc map[string]any) (*string, error) {
	if expression == "" {
		return nil, nil
	}

	result, err := e.evaluate(expression, doc)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}

	var s string
	switch v := result.(type) {
	case string:
		s = v
	case float64:
		// Trim the ".000000" noise %v would add for whole numbers
		s = trimFloat(v)
	default:
		s = fmt.Sprintf("%v", v)
	}
	if s == "" {
		return nil, nil
	}
	return &s, nil
}

// extractJSON evaluates an expression and re-serializes the result as a
// JSON string, the storage form of the items column.
func (e *Extractor) extractJSON(expression string, doc map[string]any) (*string, error) {
	if expression == "" {
		return nil, nil
	}

	result, err := e.evaluate(expression, doc)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}

	// An items value that is already a JSON string passes through
	if s, ok := result.(string); ok {
		if s == "" {
			return nil, nil
		}
		return &s, nil
	}

	b, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize items: %w", err)
	}
	s := string(b)
	return &s, nil
}

func (e *Extractor) evaluate(expression string, doc map[string]any) (any, error) {
	compiled, err := e.getOrCompile(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid expression %q: %w", expression, err)
	}

	result, err := compiled.Search(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate expression %q: %w", expression, err)
	}

	return result, nil
}

// getOrCompile retrieves a compiled expression from cache or compiles it
func (e *Extractor) getOrCompile(expression string) (*jmespath.JMESPath, error) {
	e.mu.RLock()
	if compiled, ok := e.cache[expression]; ok {
		e.mu.RUnlock()
		return compiled, nil
	}
	e.mu.RUnlock()

	compiled, err := jmespath.Compile(expression)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.cache[expression] = compiled
	e.mu.Unlock()

	return compiled, nil
}

func trimFloat(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%g", v)
}
