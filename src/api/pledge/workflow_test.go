package pledge

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/the80percentbill/pledge-api/src/api/geocode"
	"github.com/the80percentbill/pledge-api/src/api/store"
	"github.com/the80percentbill/pledge-api/src/api/types"
)

type fakeGeo struct {
	candidates []string
	searchErr  error
	district   geocode.District
	resolveErr error
}

func (g *fakeGeo) SearchAddresses(ctx context.Context, query string) ([]string, error) {
	return g.candidates, g.searchErr
}

func (g *fakeGeo) ResolveDistrict(ctx context.Context, address string) (geocode.District, error) {
	if g.resolveErr != nil {
		return geocode.District{}, g.resolveErr
	}
	return g.district, nil
}

type fakeSender struct {
	code   string
	err    error
	issued int
}

func (s *fakeSender) IssueCode(email string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.issued++
	return s.code, nil
}

type fakeBackup struct{}

func (fakeBackup) Save(ctx context.Context, sig types.Signature) error { return nil }

func springfieldGeo() *fakeGeo {
	return &fakeGeo{
		candidates: []string{"123 Main St, Springfield, IL 62701"},
		district:   geocode.District{Code: "IL-13", Rep: "Jane Doe"},
	}
}

func newTestWorkflow(geo Geocoder, sender CodeSender) (*Workflow, *store.Store, *store.MemoryTable) {
	table := store.NewMemoryTable()
	st := store.New(table, fakeBackup{}, 50)
	wf := NewWorkflow(geo, sender, st, NewMemorySessions())
	return wf, st, table
}

func TestHappyPath(t *testing.T) {
	ctx := context.Background()
	sender := &fakeSender{code: "4321"}
	wf, st, _ := newTestWorkflow(springfieldGeo(), sender)

	s, err := wf.StartSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, StepAddress, s.Step)

	s, err = wf.Search(ctx, s.ID, "123 Main St, Springfield")
	require.NoError(t, err)
	require.Len(t, s.Candidates, 1)

	s, err = wf.Confirm(ctx, s.ID, s.Candidates[0])
	require.NoError(t, err)
	assert.Equal(t, StepDistrict, s.Step)
	assert.Equal(t, "IL-13", s.District)
	assert.Equal(t, "Jane Doe", s.Rep)

	s, err = wf.Sign(ctx, s.ID, "Alex Lee", " Alex@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, StepCode, s.Step)
	assert.Equal(t, "Alex Lee", s.PendingName)
	assert.Equal(t, "alex@example.com", s.PendingEmail)
	assert.Equal(t, 1, sender.issued)

	s, err = wf.VerifyCode(ctx, s.ID, "4321")
	require.NoError(t, err)
	assert.Equal(t, StepComplete, s.Step)
	assert.Empty(t, s.PendingCode)

	n, err := st.RowCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, st.IsDuplicate(ctx, "alex@example.com"))
}

func TestSearchNoResultsStaysOnAddressEntry(t *testing.T) {
	ctx := context.Background()
	wf, _, _ := newTestWorkflow(&fakeGeo{}, &fakeSender{code: "1111"})

	s, _ := wf.StartSession(ctx)
	s, err := wf.Search(ctx, s.ID, "nowhere at all")

	var ue *UserError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, StepAddress, s.Step)
}

func TestSearchFailureTreatedAsNoResults(t *testing.T) {
	ctx := context.Background()
	geo := &fakeGeo{searchErr: errors.New("nominatim unreachable")}
	wf, _, _ := newTestWorkflow(geo, &fakeSender{code: "1111"})

	s, _ := wf.StartSession(ctx)
	s, err := wf.Search(ctx, s.ID, "123 Main St")

	var ue *UserError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, StepAddress, s.Step)
}

func TestSearchClearsPreviousCandidates(t *testing.T) {
	ctx := context.Background()
	geo := springfieldGeo()
	wf, _, _ := newTestWorkflow(geo, &fakeSender{code: "1111"})

	s, _ := wf.StartSession(ctx)
	s, err := wf.Search(ctx, s.ID, "123 Main St")
	require.NoError(t, err)
	require.NotEmpty(t, s.Candidates)

	geo.candidates = nil
	s, err = wf.Search(ctx, s.ID, "different query")
	assert.Error(t, err)
	assert.Empty(t, s.Candidates)
}

func TestConfirmRejectsUnknownAddress(t *testing.T) {
	ctx := context.Background()
	wf, _, _ := newTestWorkflow(springfieldGeo(), &fakeSender{code: "1111"})

	s, _ := wf.StartSession(ctx)
	s, _ = wf.Search(ctx, s.ID, "123 Main St")

	_, err := wf.Confirm(ctx, s.ID, "456 Other Ave")
	var ue *UserError
	require.ErrorAs(t, err, &ue)
}

func TestConfirmDistrictNotFound(t *testing.T) {
	ctx := context.Background()
	geo := springfieldGeo()
	geo.resolveErr = geocode.ErrNoDistrict
	wf, _, _ := newTestWorkflow(geo, &fakeSender{code: "1111"})

	s, _ := wf.StartSession(ctx)
	s, _ = wf.Search(ctx, s.ID, "123 Main St")

	s, err := wf.Confirm(ctx, s.ID, s.Candidates[0])
	var ue *UserError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, StepAddress, s.Step)
}

func TestManualDistrictEntry(t *testing.T) {
	ctx := context.Background()
	wf, _, _ := newTestWorkflow(springfieldGeo(), &fakeSender{code: "1111"})

	s, _ := wf.StartSession(ctx)

	_, err := wf.EnterDistrict(ctx, s.ID, "not-a-district", "")
	var ue *UserError
	require.ErrorAs(t, err, &ue)

	s, err = wf.EnterDistrict(ctx, s.ID, " ny-14 ", "")
	require.NoError(t, err)
	assert.Equal(t, StepDistrict, s.Step)
	assert.Equal(t, "NY-14", s.District)
	assert.Equal(t, types.VacantSeat, s.Rep)
}

func TestSignValidation(t *testing.T) {
	ctx := context.Background()
	sender := &fakeSender{code: "1111"}
	wf, _, _ := newTestWorkflow(springfieldGeo(), sender)

	s, _ := wf.StartSession(ctx)
	s, _ = wf.EnterDistrict(ctx, s.ID, "IL-13", "Jane Doe")

	for _, tc := range []struct{ name, email string }{
		{"", "alex@example.com"},
		{"Alex Lee", ""},
		{"Alex Lee", "not-an-email"},
	} {
		_, err := wf.Sign(ctx, s.ID, tc.name, tc.email)
		var ue *UserError
		require.ErrorAs(t, err, &ue, "name=%q email=%q", tc.name, tc.email)
	}
	assert.Zero(t, sender.issued)
}

func TestSignRejectsDuplicateBeforeIssuingCode(t *testing.T) {
	ctx := context.Background()
	sender := &fakeSender{code: "1111"}
	wf, st, _ := newTestWorkflow(springfieldGeo(), sender)

	require.NoError(t, st.Append(ctx, types.Signature{
		Name: "Prior", Email: "alex@example.com", District: "IL-13", Rep: "Jane Doe",
	}))

	s, _ := wf.StartSession(ctx)
	s, _ = wf.EnterDistrict(ctx, s.ID, "IL-13", "Jane Doe")

	_, err := wf.Sign(ctx, s.ID, "Alex Lee", " ALEX@example.com ")
	var ue *UserError
	require.ErrorAs(t, err, &ue)
	assert.Contains(t, ue.Message, "alex@example.com")
	assert.Zero(t, sender.issued)
}

func TestSignCodeDeliveryFailureKeepsStep(t *testing.T) {
	ctx := context.Background()
	sender := &fakeSender{err: errors.New("smtp down")}
	wf, _, _ := newTestWorkflow(springfieldGeo(), sender)

	s, _ := wf.StartSession(ctx)
	s, _ = wf.EnterDistrict(ctx, s.ID, "IL-13", "Jane Doe")

	s, err := wf.Sign(ctx, s.ID, "Alex Lee", "alex@example.com")
	var ue *UserError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, StepDistrict, s.Step)
}

func TestWrongCodeKeepsSessionAndStore(t *testing.T) {
	ctx := context.Background()
	wf, st, _ := newTestWorkflow(springfieldGeo(), &fakeSender{code: "4321"})

	s, _ := wf.StartSession(ctx)
	s, _ = wf.EnterDistrict(ctx, s.ID, "IL-13", "Jane Doe")
	s, err := wf.Sign(ctx, s.ID, "Alex Lee", "alex@example.com")
	require.NoError(t, err)

	s, err = wf.VerifyCode(ctx, s.ID, "9999")
	var ue *UserError
	require.ErrorAs(t, err, &ue)

	// Still awaiting the code, code retained for retry, nothing written.
	got, err := wf.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, StepCode, got.Step)
	assert.Equal(t, "4321", got.PendingCode)

	n, _ := st.RowCount(ctx)
	assert.Zero(t, n)

	// Retry with the right code succeeds.
	s, err = wf.VerifyCode(ctx, s.ID, "4321")
	require.NoError(t, err)
	assert.Equal(t, StepComplete, s.Step)
}

func TestConcurrentSessionsSameEmailCommitOnce(t *testing.T) {
	ctx := context.Background()
	wf, st, _ := newTestWorkflow(springfieldGeo(), &fakeSender{code: "4321"})

	start := func() *Session {
		s, _ := wf.StartSession(ctx)
		s, _ = wf.EnterDistrict(ctx, s.ID, "IL-13", "Jane Doe")
		s, err := wf.Sign(ctx, s.ID, "Alex Lee", "alex@example.com")
		require.NoError(t, err)
		return s
	}

	// Both sessions pass the pre-check before either commits.
	a := start()
	b := start()

	_, err := wf.VerifyCode(ctx, a.ID, "4321")
	require.NoError(t, err)

	// The second commit hits the race-guard re-check.
	_, err = wf.VerifyCode(ctx, b.ID, "4321")
	var ue *UserError
	require.ErrorAs(t, err, &ue)

	n, _ := st.RowCount(ctx)
	assert.Equal(t, 1, n)
}

func TestStepOrderingEnforced(t *testing.T) {
	ctx := context.Background()
	wf, _, _ := newTestWorkflow(springfieldGeo(), &fakeSender{code: "1111"})

	s, _ := wf.StartSession(ctx)

	var ue *UserError
	_, err := wf.Sign(ctx, s.ID, "Alex Lee", "alex@example.com")
	require.ErrorAs(t, err, &ue)

	_, err = wf.VerifyCode(ctx, s.ID, "1111")
	require.ErrorAs(t, err, &ue)
}

func TestResetReturnsToAddressEntry(t *testing.T) {
	ctx := context.Background()
	wf, _, _ := newTestWorkflow(springfieldGeo(), &fakeSender{code: "4321"})

	s, _ := wf.StartSession(ctx)
	s, _ = wf.EnterDistrict(ctx, s.ID, "IL-13", "Jane Doe")
	s, _ = wf.Sign(ctx, s.ID, "Alex Lee", "alex@example.com")
	s, err := wf.VerifyCode(ctx, s.ID, "4321")
	require.NoError(t, err)
	require.Equal(t, StepComplete, s.Step)

	s, err = wf.Reset(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, StepAddress, s.Step)
	assert.Empty(t, s.District)
	assert.Empty(t, s.PendingEmail)
}

func TestUnknownSession(t *testing.T) {
	wf, _, _ := newTestWorkflow(springfieldGeo(), &fakeSender{code: "1111"})
	_, err := wf.Search(context.Background(), "missing", "123 Main St")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
