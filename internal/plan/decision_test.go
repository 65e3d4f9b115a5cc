package plan

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"renewal-bot/internal/common/logger"
)

var approved = []string{"oscar", "molina", "aetna", "cigna", "healthfirst", "avmed", "blue"}

func TestDecide(t *testing.T) {
	tests := []struct {
		name    string
		premium int64
		carrier string
		want    Decision
	}{
		{"zero premium approved carrier", 0, "Molina Healthcare of Florida", EnrollDirect},
		{"zero premium unapproved carrier", 0, "Ambetter Health", SearchAlternative},
		{"one cent approved carrier", 1, "Oscar", SearchAlternative},
		{"full premium approved carrier", 1250, "Aetna CVS Health", SearchAlternative},
		{"full premium unapproved carrier", 1250, "Ambetter Health", SearchAlternative},
		{"zero premium empty carrier", 0, "", SearchAlternative},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.premium, tt.carrier, approved))
		})
	}
}

func TestMatchesApproved(t *testing.T) {
	assert.True(t, MatchesApproved("Blue Cross Blue Shield", approved))
	assert.True(t, MatchesApproved("OSCAR", approved))
	// Displayed cell terser than the list entry still matches.
	assert.True(t, MatchesApproved("avmed", []string{"AvMed Health Plans"}))
	assert.False(t, MatchesApproved("Ambetter", approved))
	assert.False(t, MatchesApproved("", approved))
}

func TestParsePremium(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"$0.00", 0, false},
		{"$0", 0, false},
		{"0.00", 0, false},
		{"$12.50", 1250, false},
		{"$1,234.56", 123456, false},
		{" $3.07 ", 307, false},
		{"$.99", 99, false},
		{"$5.5", 550, false},
		{"", 0, true},
		{"$", 0, true},
		{"free", 0, true},
		{"$12.345", 0, true},
		{"$-1.00", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePremium(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

type fakePage struct {
	cands        []Candidate
	filtered     string
	enrolled     int
	enrollCalled bool
	candErr      error
}

func (p *fakePage) ApplyCarrierFilter(_ context.Context, carrier string) error {
	p.filtered = carrier
	return nil
}
func (p *fakePage) WaitForRefresh(context.Context) error { return nil }
func (p *fakePage) Candidates(context.Context) ([]Candidate, error) {
	return p.cands, p.candErr
}
func (p *fakePage) Enroll(_ context.Context, index int) error {
	p.enrolled = index
	p.enrollCalled = true
	return nil
}

func TestSelectZeroPremiumSkipsStruckPrice(t *testing.T) {
	page := &fakePage{cands: []Candidate{
		{Index: 0, Name: "Silver 1", PremiumText: "$43.20"},
		{Index: 1, Name: "Bronze Promo", PremiumText: "$0.00", Struck: true},
		{Index: 2, Name: "Silver 2", PremiumText: "$12.00"},
		{Index: 3, Name: "Bronze Real", PremiumText: "$0.00"},
	}}

	res, err := SelectZeroPremium(context.Background(), page, "molina", logger.NewTestLogger(t))
	require.NoError(t, err)
	require.NotNil(t, res.Selected)
	assert.Equal(t, 3, res.Selected.Index)
	assert.Equal(t, 3, page.enrolled)
	assert.Equal(t, "molina", page.filtered)
}

func TestSelectZeroPremiumFirstQualifyingWins(t *testing.T) {
	page := &fakePage{cands: []Candidate{
		{Index: 0, PremiumText: "$0.00"},
		{Index: 1, PremiumText: "$0.00"},
	}}

	res, err := SelectZeroPremium(context.Background(), page, "oscar", logger.NewTestLogger(t))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Selected.Index)
}

func TestSelectZeroPremiumNoneFound(t *testing.T) {
	page := &fakePage{cands: []Candidate{
		{Index: 0, PremiumText: "$18.00"},
		{Index: 1, PremiumText: "$0.00", Struck: true},
	}}

	res, err := SelectZeroPremium(context.Background(), page, "aetna", logger.NewTestLogger(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoZeroPremium))
	assert.False(t, page.enrollCalled)
	assert.Equal(t, []string{"$18.00", "$0.00 (struck)"}, res.Observed)
}

func TestSelectZeroPremiumEmptyResults(t *testing.T) {
	page := &fakePage{}
	_, err := SelectZeroPremium(context.Background(), page, "cigna", logger.NewTestLogger(t))
	assert.True(t, errors.Is(err, ErrNoZeroPremium))
}

func TestSelectZeroPremiumUnparseableCardSkipped(t *testing.T) {
	page := &fakePage{cands: []Candidate{
		{Index: 0, PremiumText: "Contact us"},
		{Index: 1, PremiumText: "$0.00"},
	}}

	res, err := SelectZeroPremium(context.Background(), page, "blue", logger.NewTestLogger(t))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Selected.Index)
}
