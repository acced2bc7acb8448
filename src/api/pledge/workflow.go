package pledge

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/the80percentbill/pledge-api/src/api/geocode"
	"github.com/the80percentbill/pledge-api/src/api/types"
)

// UserError is a recoverable input or lookup failure shown to the user.
// The session stays on its current step and the action may be retried.
type UserError struct {
	Message string
}

func (e *UserError) Error() string { return e.Message }

// Geocoder resolves free-text addresses to candidates and districts.
type Geocoder interface {
	SearchAddresses(ctx context.Context, query string) ([]string, error)
	ResolveDistrict(ctx context.Context, address string) (geocode.District, error)
}

// CodeSender issues verification codes by email.
type CodeSender interface {
	IssueCode(email string) (string, error)
}

// SignatureStore is the subset of the store the workflow needs.
type SignatureStore interface {
	IsDuplicate(ctx context.Context, email string) bool
	Append(ctx context.Context, sig types.Signature) error
}

var districtRe = regexp.MustCompile(`^[A-Z]{2}-\d{1,2}$`)

// Workflow drives a session through
// address entry -> district confirmed -> awaiting code -> complete.
// Each operation loads the session, validates the step, applies one
// transition and saves. There are no background tasks: every user
// action blocks on its remote call.
type Workflow struct {
	geo       Geocoder
	sender    CodeSender
	store     SignatureStore
	sessions  SessionStore
	sanitizer *bluemonday.Policy
}

func NewWorkflow(geo Geocoder, sender CodeSender, store SignatureStore, sessions SessionStore) *Workflow {
	return &Workflow{
		geo:       geo,
		sender:    sender,
		store:     store,
		sessions:  sessions,
		sanitizer: bluemonday.StrictPolicy(),
	}
}

// StartSession creates a fresh session at the address-entry step.
func (w *Workflow) StartSession(ctx context.Context) (*Session, error) {
	s := &Session{
		ID:        uuid.NewString(),
		Step:      StepAddress,
		CreatedAt: time.Now(),
	}
	if err := w.sessions.Save(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (w *Workflow) Get(ctx context.Context, id string) (*Session, error) {
	return w.sessions.Get(ctx, id)
}

func (w *Workflow) load(ctx context.Context, id string, want Step) (*Session, error) {
	s, err := w.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.Step != want {
		return nil, &UserError{Message: fmt.Sprintf("action not available at step %q", s.Step)}
	}
	return s, nil
}

// Search looks up candidate addresses for a free-text query. A failed
// or empty lookup keeps the session at address entry with an error; the
// previous candidate list is cleared either way.
func (w *Workflow) Search(ctx context.Context, id, query string) (*Session, error) {
	s, err := w.load(ctx, id, StepAddress)
	if err != nil {
		return s, err
	}

	candidates, err := w.geo.SearchAddresses(ctx, query)
	if err != nil {
		// Unreachable service degrades to "no results" for the user.
		log.Printf("pledge: address search failed: %v", err)
		candidates = nil
	}

	s.Candidates = candidates
	if err := w.sessions.Save(ctx, s); err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return s, &UserError{Message: "No address found. Please try again."}
	}
	return s, nil
}

// Confirm resolves one of the candidate addresses to a district and
// advances to the district-confirmed step.
func (w *Workflow) Confirm(ctx context.Context, id, address string) (*Session, error) {
	s, err := w.load(ctx, id, StepAddress)
	if err != nil {
		return s, err
	}

	found := false
	for _, c := range s.Candidates {
		if c == address {
			found = true
			break
		}
	}
	if !found {
		return s, &UserError{Message: "Please confirm one of the suggested addresses."}
	}

	district, err := w.geo.ResolveDistrict(ctx, address)
	if err != nil {
		log.Printf("pledge: district resolution failed for %q: %v", address, err)
		return s, &UserError{Message: "District not found."}
	}

	s.District = district.Code
	s.Rep = district.Rep
	s.Candidates = nil
	s.Step = StepDistrict
	if err := w.sessions.Save(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// EnterDistrict is the manual-entry variant of address confirmation:
// the signer types their district directly instead of searching.
func (w *Workflow) EnterDistrict(ctx context.Context, id, district, rep string) (*Session, error) {
	s, err := w.load(ctx, id, StepAddress)
	if err != nil {
		return s, err
	}

	district = strings.ToUpper(strings.TrimSpace(district))
	if !districtRe.MatchString(district) {
		return s, &UserError{Message: "District must look like NY-14."}
	}
	rep = strings.TrimSpace(w.sanitizer.Sanitize(rep))
	if rep == "" {
		rep = types.VacantSeat
	}

	s.District = district
	s.Rep = rep
	s.Candidates = nil
	s.Step = StepDistrict
	if err := w.sessions.Save(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Sign validates the signer's identity, checks for an existing
// signature, and issues a verification code. The first duplicate check
// happens here, before any email is sent.
func (w *Workflow) Sign(ctx context.Context, id, name, email string) (*Session, error) {
	s, err := w.load(ctx, id, StepDistrict)
	if err != nil {
		return s, err
	}

	name = strings.TrimSpace(w.sanitizer.Sanitize(name))
	if name == "" || strings.TrimSpace(email) == "" || !strings.Contains(email, "@") || len(email) > 255 {
		return s, &UserError{Message: "Invalid name or email."}
	}

	clean := types.NormalizeEmail(email)
	if w.store.IsDuplicate(ctx, clean) {
		return s, &UserError{Message: fmt.Sprintf("'%s' has already signed.", clean)}
	}

	code, err := w.sender.IssueCode(clean)
	if err != nil {
		log.Printf("pledge: code delivery to %s failed: %v", clean, err)
		return s, &UserError{Message: "Could not send the verification email. Please try again."}
	}

	s.PendingCode = code
	s.PendingName = name
	s.PendingEmail = clean
	s.Step = StepCode
	if err := w.sessions.Save(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// VerifyCode checks the emailed code and, on match, re-checks for a
// duplicate before committing. The re-check closes the window where two
// sessions verify the same email concurrently: real time passes between
// code issuance and entry, so the earlier check cannot be trusted.
func (w *Workflow) VerifyCode(ctx context.Context, id, code string) (*Session, error) {
	s, err := w.load(ctx, id, StepCode)
	if err != nil {
		return s, err
	}

	if strings.TrimSpace(code) != s.PendingCode {
		// Pending code is retained; entry may be retried.
		return s, &UserError{Message: "Incorrect code."}
	}

	if w.store.IsDuplicate(ctx, s.PendingEmail) {
		// Lost the race to another session. The session cannot
		// complete, so discard it rather than invite retries.
		_ = w.sessions.Delete(ctx, id)
		return s, &UserError{Message: fmt.Sprintf("'%s' has already signed.", s.PendingEmail)}
	}

	sig := types.Signature{
		Timestamp: time.Now(),
		Name:      s.PendingName,
		Email:     s.PendingEmail,
		District:  s.District,
		Rep:       s.Rep,
	}
	if err := w.store.Append(ctx, sig); err != nil {
		return s, err
	}

	s.PendingCode = ""
	s.Step = StepComplete
	if err := w.sessions.Save(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Reset discards all session state and returns to address entry. The
// only exit from a completed session.
func (w *Workflow) Reset(ctx context.Context, id string) (*Session, error) {
	s := &Session{
		ID:        id,
		Step:      StepAddress,
		CreatedAt: time.Now(),
	}
	if err := w.sessions.Save(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}
