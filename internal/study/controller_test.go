package study

import (
	"errors"
	"math/rand/v2"
	"reflect"
	"slices"
	"strings"
	"testing"

	"github.com/starford/studycards/internal/apperr"
	"github.com/starford/studycards/internal/cardset"
	"github.com/starford/studycards/internal/models"
	"github.com/starford/studycards/internal/star"
	"github.com/starford/studycards/internal/storage"
	"github.com/starford/studycards/internal/testutil"
)

type env struct {
	store *storage.FS
	repo  *cardset.Repository
	stars *star.Tracker
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := testutil.TestStore(t)
	logger := testutil.TestLogger()
	return &env{
		store: store,
		repo:  cardset.NewRepository(store, logger),
		stars: star.NewTracker(store, logger),
	}
}

func (e *env) seed(t *testing.T, name string, cards ...models.Card) {
	t.Helper()
	if _, err := e.repo.AddOrReplaceSet(name, cards); err != nil {
		t.Fatalf("seed %s: %v", name, err)
	}
}

func (e *env) controller(t *testing.T) *Controller {
	t.Helper()
	c, err := New(e.repo, e.stars,
		WithLogger(testutil.TestLogger()),
		WithRand(rand.New(rand.NewPCG(1, 2))))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func card(q, a string) models.Card {
	return models.Card{Question: q, Answer: a}
}

func questions(cards []models.Card) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.Question
	}
	return out
}

func TestNew_ActivatesFirstSet(t *testing.T) {
	e := newEnv(t)
	e.seed(t, "B", card("b", "1"))
	e.seed(t, "A", card("a", "1"))

	s := e.controller(t).Session()
	if !s.Active || s.SetName != "B" {
		t.Errorf("active = %v %q, want B", s.Active, s.SetName)
	}
}

func TestNew_EmptyLibrary(t *testing.T) {
	c := newEnv(t).controller(t)
	s := c.Session()
	if s.Active || len(s.Cards) != 0 || s.Index != 0 {
		t.Errorf("session = %+v, want inactive and empty", s)
	}
	v, err := c.View()
	if err != nil {
		t.Fatal(err)
	}
	if v.Card != nil || v.Total != 0 {
		t.Errorf("view = %+v", v)
	}
}

func TestNavigation_ClampsWithoutWraparound(t *testing.T) {
	e := newEnv(t)
	e.seed(t, "A", card("1+1", "2"), card("2+2", "4"))
	c := e.controller(t)

	if err := c.ChangeSet("A"); err != nil {
		t.Fatal(err)
	}
	s := c.Session()
	if s.Index != 0 || !slices.Equal(questions(s.Cards), []string{"1+1", "2+2"}) {
		t.Fatalf("after ChangeSet: %+v", s)
	}

	if !c.Next() || c.Session().Index != 1 {
		t.Fatalf("Next: index = %d, want 1", c.Session().Index)
	}
	if c.Next() || c.Session().Index != 1 {
		t.Errorf("second Next: index = %d, want 1", c.Session().Index)
	}
	if !c.Prev() || c.Session().Index != 0 {
		t.Errorf("Prev: index = %d, want 0", c.Session().Index)
	}
	if c.Prev() || c.Session().Index != 0 {
		t.Errorf("second Prev: index = %d, want 0", c.Session().Index)
	}
}

func TestNavigation_EmptySet(t *testing.T) {
	e := newEnv(t)
	e.seed(t, "Empty")
	c := e.controller(t)
	if c.Next() || c.Prev() {
		t.Error("navigation moved in an empty set")
	}
	if c.Session().Index != 0 {
		t.Errorf("index = %d", c.Session().Index)
	}
}

func TestFlip_ResetsOnNavigation(t *testing.T) {
	e := newEnv(t)
	e.seed(t, "A", card("1", "1"), card("2", "2"))
	c := e.controller(t)

	if !c.Flip() {
		t.Fatal("Flip should show the back")
	}
	c.Next()
	if c.Session().Flipped {
		t.Error("flip state survived Next")
	}
	c.Flip()
	_ = c.ChangeSet("A")
	if c.Session().Flipped {
		t.Error("flip state survived ChangeSet")
	}
}

func TestChangeSet_Unknown(t *testing.T) {
	e := newEnv(t)
	e.seed(t, "A", card("1", "1"))
	c := e.controller(t)

	if err := c.ChangeSet("Nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if c.Session().SetName != "A" {
		t.Error("failed ChangeSet changed the active set")
	}
}

func TestSession_IsACopy(t *testing.T) {
	e := newEnv(t)
	e.seed(t, "A", card("1", "1"))
	c := e.controller(t)

	s := c.Session()
	s.Cards[0].Question = "mutated"

	canon, _ := c.canon.Get("A")
	if canon[0].Question != "1" || c.Session().Cards[0].Question != "1" {
		t.Error("mutating a session copy leaked into controller state")
	}
}

func TestDeleteSet_SwitchesToFirstRemaining(t *testing.T) {
	e := newEnv(t)
	e.seed(t, "A", card("a", "1"))
	e.seed(t, "B", card("b", "1"))
	c := e.controller(t)

	if err := c.DeleteSet("A"); err != nil {
		t.Fatal(err)
	}
	if s := c.Session(); s.SetName != "B" || len(s.Cards) != 1 {
		t.Errorf("session = %+v, want B", s)
	}

	if err := c.DeleteSet("B"); err != nil {
		t.Fatal(err)
	}
	if s := c.Session(); s.Active || len(s.Cards) != 0 {
		t.Errorf("session = %+v, want inactive", s)
	}
}

func TestDeleteSet_OtherSetKeepsSession(t *testing.T) {
	e := newEnv(t)
	e.seed(t, "A", card("a1", "1"), card("a2", "2"))
	e.seed(t, "B", card("b", "1"))
	c := e.controller(t)
	c.Next()

	if err := c.DeleteSet("B"); err != nil {
		t.Fatal(err)
	}
	if s := c.Session(); s.SetName != "A" || s.Index != 1 {
		t.Errorf("session = %+v", s)
	}
	if len(c.Sets()) != 1 {
		t.Errorf("sets = %v", c.Sets())
	}
}

func TestReload_PicksUpExternalWrites(t *testing.T) {
	e := newEnv(t)
	e.seed(t, "A", card("a1", "1"), card("a2", "2"))
	c := e.controller(t)
	c.Next()

	// Another process drops a2 and adds a set.
	sets, _ := e.repo.Load()
	cards, _ := sets.Get("A")
	_, _, _ = e.repo.RemoveCard("A", cards[1])
	e.seed(t, "B", card("b", "1"))

	if err := c.Reload(); err != nil {
		t.Fatal(err)
	}
	s := c.Session()
	if !slices.Equal(questions(s.Cards), []string{"a1"}) || s.Index != 0 {
		t.Errorf("session = %+v", s)
	}
	if len(c.Sets()) != 2 {
		t.Errorf("sets = %v", c.Sets())
	}

	// Active set removed externally.
	_, _ = e.repo.DeleteSet("A")
	_ = c.Reload()
	if c.Session().SetName != "B" {
		t.Errorf("active = %q, want B", c.Session().SetName)
	}
}

func TestView_ReportsCurrentCard(t *testing.T) {
	e := newEnv(t)
	e.seed(t, "A", card("1+1", "2"), card("2+2", "4"))
	c := e.controller(t)
	c.Next()
	if _, err := c.ToggleCurrentCardStar(); err != nil {
		t.Fatal(err)
	}

	v, err := c.View()
	if err != nil {
		t.Fatal(err)
	}
	if v.SetName != "A" || v.Index != 1 || v.Total != 2 {
		t.Errorf("view = %+v", v)
	}
	if v.Card == nil || v.Card.Question != "2+2" {
		t.Errorf("card = %+v", v.Card)
	}
	if !v.Starred {
		t.Error("current card should be starred")
	}
	want := []SetSummary{{Name: "A", Count: 2}}
	if !reflect.DeepEqual(v.Sets, want) {
		t.Errorf("sets = %+v", v.Sets)
	}
}

func TestExportAll(t *testing.T) {
	c := newEnv(t).controller(t)
	if _, err := c.ExportAll(); !errors.Is(err, apperr.ErrNothingToExport) {
		t.Fatalf("err = %v, want ErrNothingToExport", err)
	}

	if _, err := c.ImportSets([]byte(`{"Math":[{"question":"1+1","answer":"2"}],"Art":[{"question":"q","answer":"a"}]}`)); err != nil {
		t.Fatal(err)
	}
	out, err := c.ExportAll()
	if err != nil {
		t.Fatal(err)
	}
	text := string(out)
	if !strings.HasPrefix(text, "{\n  \"Math\": [\n    {\n      \"question\": \"1+1\",") {
		t.Errorf("export not indented by two spaces:\n%s", text)
	}
	if strings.Index(text, `"Math"`) > strings.Index(text, `"Art"`) {
		t.Error("export lost set order")
	}

	// The export imports cleanly into an empty library.
	other := newEnv(t).controller(t)
	n, err := other.ImportSets(out)
	if err != nil || n != 2 {
		t.Fatalf("re-import = %d, %v", n, err)
	}
	again, _ := other.ExportAll()
	if string(again) != text {
		t.Errorf("re-export differs:\n%s\nvs\n%s", again, text)
	}
}
