package jobs

import (
	"errors"
	"testing"
)

func TestTargetValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		target  Target
		wantErr error
	}{
		{
			name:   "title and company name",
			target: Target{Title: "Software Engineer", CompanyName: "Acme"},
		},
		{
			name:   "title and domain only",
			target: Target{Title: "Software Engineer", CompanyDomain: "acme.io"},
		},
		{
			name:    "missing title",
			target:  Target{CompanyName: "Acme"},
			wantErr: ErrMissingTitle,
		},
		{
			name:    "missing company and domain",
			target:  Target{Title: "Software Engineer"},
			wantErr: ErrMissingCompany,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.target.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestCandidatesDedupeByURL(t *testing.T) {
	t.Parallel()

	c := &Candidates{}
	c.Append(
		Candidate{Title: "Backend Engineer", URL: "https://acme.io/jobs/1", Source: SourceSelectorMatch},
		Candidate{Title: "Backend Engineer (dup)", URL: "https://acme.io/jobs/1", Source: SourceKeywordMatch},
		Candidate{Title: "Data Engineer", URL: "https://acme.io/jobs/2", Source: SourceKeywordMatch},
	)

	dropped := c.DedupeByURL()
	if dropped != 1 {
		t.Fatalf("expected 1 dropped, got %d", dropped)
	}

	if c.Len() != 2 {
		t.Fatalf("expected 2 candidates left, got %d", c.Len())
	}

	// First occurrence wins.
	if c.Items[0].Source != SourceSelectorMatch {
		t.Fatalf("expected first occurrence to be kept, got %s", c.Items[0].Source)
	}
}
