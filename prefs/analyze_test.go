package prefs

import (
	"reflect"
	"testing"

	"tablematch/models"
)

func participant(id string, cuisines []string, price models.PriceTier, openNow bool) *models.Participant {
	return &models.Participant{
		ID: id,
		Preferences: models.PreferenceSet{
			Cuisines: cuisines,
			Price:    price,
			OpenNow:  openNow,
		},
	}
}

func TestAnalyzeEmpty(t *testing.T) {
	if _, err := Analyze(nil); err != ErrInsufficientData {
		t.Fatalf("Analyze(nil) err = %v, want ErrInsufficientData", err)
	}
}

func TestAnalyzeTwoParticipants(t *testing.T) {
	a := participant("A", []string{"Italian", "Mexican"}, models.PriceModerate, true)
	b := participant("B", []string{"Thai", "Italian"}, models.PriceUpscale, false)

	got, err := Analyze([]*models.Participant{a, b})
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(got.Priority, []string{"italian"}) {
		t.Errorf("Priority = %v, want [italian]", got.Priority)
	}
	if !reflect.DeepEqual(got.Fallback, []string{"mexican", "thai"}) {
		t.Errorf("Fallback = %v, want [mexican thai]", got.Fallback)
	}
	// $$ and $$$ each appear once; first-seen (A's $$) wins the tie.
	if got.DominantPrice != models.PriceModerate {
		t.Errorf("DominantPrice = %v, want $$", got.DominantPrice)
	}
	if got.OpenNowPercentage != 50 {
		t.Errorf("OpenNowPercentage = %v, want 50", got.OpenNowPercentage)
	}
	if got.FilterOpenNow {
		t.Error("FilterOpenNow = true, want false (50% is not a majority)")
	}
}

func TestAnalyzeCountsCoverAllTags(t *testing.T) {
	ps := []*models.Participant{
		participant("A", []string{"Italian", "Mexican", "sushi"}, models.PriceAny, true),
		participant("B", []string{"italian"}, "", true),
		participant("C", []string{"Sushi", "BBQ"}, models.PriceCheap, true),
	}
	got, err := Analyze(ps)
	if err != nil {
		t.Fatal(err)
	}

	distinct := map[string]bool{"italian": true, "mexican": true, "sushi": true, "bbq": true}
	covered := map[string]bool{}
	sum := 0
	for _, c := range got.Cuisines {
		covered[c.Tag] = true
		sum += c.Count
	}
	for _, tag := range got.Priority {
		if !distinct[tag] {
			t.Errorf("priority tag %q not in the input tag set", tag)
		}
	}
	for _, tag := range got.Fallback {
		if !distinct[tag] {
			t.Errorf("fallback tag %q not in the input tag set", tag)
		}
	}
	if len(got.Priority)+len(got.Fallback) != len(distinct) {
		t.Errorf("partition size %d, want %d", len(got.Priority)+len(got.Fallback), len(distinct))
	}
	if !reflect.DeepEqual(covered, distinct) {
		t.Errorf("cuisine list covers %v, want %v", covered, distinct)
	}
	// total tallies == total tags supplied (3 + 1 + 2)
	if sum != 6 {
		t.Errorf("sum of counts = %d, want 6", sum)
	}

	// all three picked openNow
	if !got.FilterOpenNow {
		t.Error("FilterOpenNow = false, want true at 100%")
	}
	// only C stated a concrete tier
	if got.DominantPrice != models.PriceCheap {
		t.Errorf("DominantPrice = %v, want $", got.DominantPrice)
	}
}

func TestAnalyzeDescendingCountOrder(t *testing.T) {
	ps := []*models.Participant{
		participant("A", []string{"ramen", "pizza"}, "", false),
		participant("B", []string{"pizza"}, "", false),
		participant("C", []string{"pizza", "ramen", "tacos"}, "", false),
	}
	got, err := Analyze(ps)
	if err != nil {
		t.Fatal(err)
	}
	var tags []string
	for _, c := range got.Cuisines {
		tags = append(tags, c.Tag)
	}
	// pizza(3), ramen(2), tacos(1); ramen before tacos by count, pizza first
	if !reflect.DeepEqual(tags, []string{"pizza", "ramen", "tacos"}) {
		t.Errorf("cuisine order = %v", tags)
	}
}

func TestAnalyzeDefaultPrice(t *testing.T) {
	got, err := Analyze([]*models.Participant{
		participant("A", []string{"thai"}, models.PriceAny, false),
	})
	if err != nil {
		t.Fatal(err)
	}
	if got.DominantPrice != models.PriceModerate {
		t.Errorf("DominantPrice = %v, want default $$", got.DominantPrice)
	}
}

func TestQueryTerm(t *testing.T) {
	cases := []struct {
		name string
		in   *models.PreferenceAnalysis
		want string
	}{
		{"priority wins", &models.PreferenceAnalysis{Priority: []string{"italian"}, Fallback: []string{"thai"}}, "italian"},
		{"fallback next", &models.PreferenceAnalysis{Fallback: []string{"thai"}}, "thai"},
		{"generic last", &models.PreferenceAnalysis{}, "restaurant"},
	}
	for _, tc := range cases {
		if got := QueryTerm(tc.in); got != tc.want {
			t.Errorf("%s: QueryTerm = %q, want %q", tc.name, got, tc.want)
		}
	}
}
