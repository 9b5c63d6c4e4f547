package points

import (
	"maps"
	"slices"
	"testing"

	"github.com/benvon/civiz/internal/models"
)

func sameAccount(a, b Account) bool {
	return a.PointsAccount == b.PointsAccount && slices.Equal(a.LikedVisions, b.LikedVisions)
}

func sameTally(a, b VisionTally) bool {
	return a.Likes == b.Likes && a.Points == b.Points && maps.Equal(a.LikedBy, b.LikedBy)
}

func TestOnVisionSubmitted(t *testing.T) {
	t.Parallel()

	got := OnVisionSubmitted(Account{})
	want := models.PointsAccount{TotalPoints: 3, PointsFromVisions: 3}
	if got.PointsAccount != want {
		t.Errorf("OnVisionSubmitted() = %+v, want %+v", got.PointsAccount, want)
	}
}

func TestOnLikeIsIdempotent(t *testing.T) {
	t.Parallel()

	start := OnVisionSubmitted(Account{})
	once := OnLike(start, "v1")
	twice := OnLike(once, "v1")

	if !sameAccount(once, twice) {
		t.Errorf("OnLike twice = %+v, want %+v", twice, once)
	}
	if once.PointsFromLikes != 1 || once.TotalPoints != 4 {
		t.Errorf("OnLike() = %+v, want total 4 and likes 1", once.PointsAccount)
	}
	if !once.Likes("v1") {
		t.Error("OnLike() did not add v1 to the liked set")
	}
	if start.Likes("v1") {
		t.Error("OnLike() mutated its input")
	}
}

func TestOnUnlike(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		account Account
		vision  string
		want    models.PointsAccount
	}{
		{
			name:    "not liked is a no-op",
			account: Account{PointsAccount: models.PointsAccount{TotalPoints: 3, PointsFromVisions: 3}},
			vision:  "v1",
			want:    models.PointsAccount{TotalPoints: 3, PointsFromVisions: 3},
		},
		{
			name: "liked",
			account: Account{
				PointsAccount: models.PointsAccount{TotalPoints: 4, PointsFromVisions: 3, PointsFromLikes: 1},
				LikedVisions:  []string{"v1"},
			},
			vision: "v1",
			want:   models.PointsAccount{TotalPoints: 3, PointsFromVisions: 3},
		},
		{
			name: "liked but like points already gone",
			account: Account{
				PointsAccount: models.PointsAccount{TotalPoints: 3, PointsFromVisions: 3},
				LikedVisions:  []string{"v1"},
			},
			vision: "v1",
			want:   models.PointsAccount{TotalPoints: 3, PointsFromVisions: 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := OnUnlike(tt.account, tt.vision)
			if got.PointsAccount != tt.want {
				t.Errorf("OnUnlike() = %+v, want %+v", got.PointsAccount, tt.want)
			}
			if got.Likes(tt.vision) {
				t.Errorf("OnUnlike() left %q in the liked set", tt.vision)
			}
		})
	}
}

func TestOnFunding(t *testing.T) {
	t.Parallel()

	tests := []struct {
		amount int
		want   int
	}{
		{amount: 0, want: 0},
		{amount: -5, want: 0},
		{amount: 1, want: 2},
		{amount: 25, want: 50},
	}
	for _, tt := range tests {
		if got := OnFunding(tt.amount); got != tt.want {
			t.Errorf("OnFunding(%d) = %d, want %d", tt.amount, got, tt.want)
		}
	}

	a := CreditFunding(Account{}, 10)
	if a.TotalPoints != 20 || a.PointsFromFunding != 20 {
		t.Errorf("CreditFunding() = %+v, want total and funding 20", a.PointsAccount)
	}
}

func TestMerge(t *testing.T) {
	t.Parallel()

	a := OnVisionSubmitted(Account{})
	got := Merge(a, models.PointsAccount{TotalPoints: 9, PointsFromVisions: 6, PointsFromLikes: 3})
	want := models.PointsAccount{TotalPoints: 12, PointsFromVisions: 9, PointsFromLikes: 3}
	if got.PointsAccount != want {
		t.Errorf("Merge() = %+v, want %+v", got.PointsAccount, want)
	}

	// a malformed guest balance cannot drain the account
	got = Merge(a, models.PointsAccount{TotalPoints: -10, PointsFromVisions: -10})
	if got.PointsAccount != a.PointsAccount {
		t.Errorf("Merge(negative) = %+v, want %+v", got.PointsAccount, a.PointsAccount)
	}
}

// Any sequence of ledger operations keeps the account consistent, including
// more unlikes than likes.
func TestLedgerInvariants(t *testing.T) {
	t.Parallel()

	type op func(Account) Account
	ops := []op{
		OnVisionSubmitted,
		func(a Account) Account { return OnLike(a, "v1") },
		func(a Account) Account { return OnLike(a, "v2") },
		func(a Account) Account { return OnUnlike(a, "v1") },
		func(a Account) Account { return OnUnlike(a, "v1") },
		func(a Account) Account { return OnUnlike(a, "v3") },
		func(a Account) Account { return CreditFunding(a, 4) },
		func(a Account) Account { return OnUnlike(a, "v2") },
		func(a Account) Account { return OnUnlike(a, "v2") },
		func(a Account) Account { return Merge(a, models.PointsAccount{PointsFromLikes: 2}) },
	}

	// walk every rotation of the sequence so each op runs from several states
	for start := range ops {
		a := Account{}
		for i := range ops {
			a = ops[(start+i)%len(ops)](a)
			if !a.Consistent() {
				t.Fatalf("rotation %d step %d: inconsistent account %+v", start, i, a.PointsAccount)
			}
		}
	}
}

func TestContribution(t *testing.T) {
	t.Parallel()

	tests := []struct {
		total int
		want  int
	}{
		{total: 0, want: 1},
		{total: 19, want: 1},
		{total: 20, want: 2},
		{total: 100, want: 6},
		{total: -4, want: 1},
	}
	for _, tt := range tests {
		if got := Contribution(tt.total); got != tt.want {
			t.Errorf("Contribution(%d) = %d, want %d", tt.total, got, tt.want)
		}
	}
}

func TestSubmitVision(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		total     int
		wantSeed  int
		wantTotal int
	}{
		{name: "new account", total: 0, wantSeed: 0, wantTotal: 3},
		{name: "below ten", total: 9, wantSeed: 0, wantTotal: 12},
		{name: "established", total: 125, wantSeed: 12, wantTotal: 128},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			in := Account{PointsAccount: models.PointsAccount{TotalPoints: tt.total, PointsFromLikes: tt.total}}
			got, seed := SubmitVision(in)
			if seed != tt.wantSeed {
				t.Errorf("seed = %d, want %d", seed, tt.wantSeed)
			}
			if got.TotalPoints != tt.wantTotal || got.PointsFromVisions != VisionSubmission {
				t.Errorf("account = %+v, want total %d", got.PointsAccount, tt.wantTotal)
			}
			if in.TotalPoints != tt.total {
				t.Error("SubmitVision() mutated its input")
			}
		})
	}
}

func TestImagePoints(t *testing.T) {
	t.Parallel()

	tests := []struct {
		likes, submitter, want int
	}{
		{likes: 0, submitter: 0, want: 0},
		{likes: 4, submitter: 9, want: 4},
		{likes: 4, submitter: 10, want: 5},
		{likes: 2, submitter: 125, want: 14},
	}
	for _, tt := range tests {
		if got := ImagePoints(tt.likes, tt.submitter); got != tt.want {
			t.Errorf("ImagePoints(%d, %d) = %d, want %d", tt.likes, tt.submitter, got, tt.want)
		}
	}
}
