package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/sift/internal/model"
)

func correction(filename, pattern string, keywords ...string) *model.Correction {
	return &model.Correction{
		OriginalFilename:   filename,
		OriginalAction:     model.ActionMove,
		OriginalDomain:     "Personal",
		CorrectedAction:    model.ActionMove,
		CorrectedDomain:    "Work",
		CorrectedSubfolder: "Expenses",
		UserFeedback:       "receipts from work trips belong with expenses",
		FilenamePattern:    pattern,
		Keywords:           keywords,
	}
}

func TestSaveCorrection_AssignsIDAndRoundTrips(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	c := correction("uber-receipt-march.pdf", `uber.*receipt`, "uber", "receipt")
	require.NoError(t, s.SaveCorrection(ctx, c))
	require.Len(t, c.ID, 8)
	assert.False(t, c.CreatedAt.IsZero())

	got, err := s.GetCorrection(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.OriginalFilename, got.OriginalFilename)
	assert.Equal(t, []string{"uber", "receipt"}, got.Keywords)
	assert.Equal(t, "Work", got.CorrectedDomain)
	assert.Equal(t, "Expenses", got.CorrectedSubfolder)
	assert.Equal(t, 0, got.TimesApplied)
	assert.Nil(t, got.LastApplied)

	_, err = s.GetCorrection(ctx, "nope")
	require.ErrorIs(t, err, ErrCorrectionNotFound)
}

func TestSaveCorrection_Validation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.ErrorIs(t, s.SaveCorrection(ctx, nil), ErrNilParameter)

	c := correction("", "")
	require.ErrorIs(t, s.SaveCorrection(ctx, c), ErrInvalidCorrection)

	c = correction("a.pdf", "")
	c.CorrectedAction = "shred"
	require.ErrorIs(t, s.SaveCorrection(ctx, c), ErrInvalidCorrection)
}

func TestRelevanceScore(t *testing.T) {
	tests := []struct {
		name     string
		c        model.Correction
		filename string
		want     int
	}{
		{
			name:     "pattern only",
			c:        model.Correction{OriginalFilename: "x", FilenamePattern: `^uber`},
			filename: "Uber_Trip.pdf",
			want:     5,
		},
		{
			name:     "two keywords",
			c:        model.Correction{OriginalFilename: "x", Keywords: []string{"uber", "trip", "lyft"}},
			filename: "uber-trip.pdf",
			want:     4,
		},
		{
			name:     "original filename contained",
			c:        model.Correction{OriginalFilename: "invoice"},
			filename: "Invoice-2024.pdf",
			want:     3,
		},
		{
			name:     "everything",
			c:        model.Correction{OriginalFilename: "uber", FilenamePattern: `uber`, Keywords: []string{"uber"}},
			filename: "uber.pdf",
			want:     10,
		},
		{
			name:     "invalid pattern ignored",
			c:        model.Correction{OriginalFilename: "zzz", FilenamePattern: `([`},
			filename: "uber.pdf",
			want:     0,
		},
		{
			name:     "no overlap",
			c:        model.Correction{OriginalFilename: "zzz", Keywords: []string{"lyft"}},
			filename: "uber.pdf",
			want:     0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RelevanceScore(tt.c, tt.filename))
		})
	}
}

func TestRelevantCorrections_RankingAndLimit(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	keywordOnly := correction("other.pdf", "", "uber", "receipt")
	patternOnly := correction("zzz.pdf", `uber`)
	unrelated := correction("bank-statement.pdf", `statement`, "bank")
	newerKeyword := correction("another.pdf", "", "uber", "receipt")
	for _, c := range []*model.Correction{keywordOnly, patternOnly, unrelated, newerKeyword} {
		require.NoError(t, s.SaveCorrection(ctx, c))
	}

	got, err := s.RelevantCorrections(ctx, "uber-receipt.pdf", 10)
	require.NoError(t, err)

	ids := make([]string, len(got))
	for i, c := range got {
		ids[i] = c.ID
	}
	// Pattern (5) outranks two keywords (4); equal scores keep newest first.
	assert.Equal(t, []string{patternOnly.ID, newerKeyword.ID, keywordOnly.ID}, ids)

	limited, err := s.RelevantCorrections(ctx, "uber-receipt.pdf", 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, patternOnly.ID, limited[0].ID)

	none, err := s.RelevantCorrections(ctx, "holiday.jpg", 5)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMarkCorrectionUsed(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	c := correction("a.pdf", "", "alpha")
	require.NoError(t, s.SaveCorrection(ctx, c))

	require.NoError(t, s.MarkCorrectionUsed(ctx, c.ID))
	require.NoError(t, s.MarkCorrectionUsed(ctx, c.ID))

	got, err := s.GetCorrection(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.TimesApplied)
	require.NotNil(t, got.LastApplied)

	require.ErrorIs(t, s.MarkCorrectionUsed(ctx, "missing"), ErrCorrectionNotFound)
}

func TestListAndSearchCorrections(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	first := correction("Quarterly-Report.pdf", "", "quarterly")
	second := correction("vacation.jpg", "", "beach", "Hawaii")
	require.NoError(t, s.SaveCorrection(ctx, first))
	require.NoError(t, s.SaveCorrection(ctx, second))

	all, err := s.ListCorrections(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)

	found, err := s.SearchCorrections(ctx, "hawaii", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, second.ID, found[0].ID)

	found, err = s.SearchCorrections(ctx, "QUARTERLY-report", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, first.ID, found[0].ID)
}
