package service

import (
	"errors"
	"strings"
	"testing"

	"github.com/kangminhyuk1111/hoops/internal/logger"
	"github.com/kangminhyuk1111/hoops/internal/model"
	"github.com/kangminhyuk1111/hoops/internal/repository"
	"github.com/kangminhyuk1111/hoops/internal/repository/memory"
)

func TestLocationCreate(t *testing.T) {
	h := newHarness(t)
	svc := NewLocationService(h.store, logger.Discard())
	actor := h.user("builder")

	l, err := svc.Create(h.ctx, actor, CreateLocationCommand{
		Name: "  Banpo Park Court ", Address: "Seocho-gu", Latitude: 37.51, Longitude: 126.99,
	})
	if err != nil {
		t.Fatal(err)
	}
	if l.Name != "Banpo Park Court" || l.Slug != "banpo-park-court" || l.CreatedBy != actor.UserID {
		t.Fatalf("location = %+v", l)
	}

	_, err = svc.Create(h.ctx, actor, CreateLocationCommand{
		Name: "banpo park  court!", Address: "elsewhere", Latitude: 37.4, Longitude: 127.1,
	})
	wantErr(t, err, ErrDuplicateLocationName)

	got, err := svc.Get(h.ctx, l.ID)
	if err != nil || got.ID != l.ID {
		t.Fatalf("get = %+v %v", got, err)
	}
	_, err = svc.Get(h.ctx, 999)
	wantErr(t, err, ErrLocationNotFound)
}

func TestLocationCreateValidation(t *testing.T) {
	svc := NewLocationService(memory.New(), nil)
	actor := model.Principal{UserID: 1}
	cases := []CreateLocationCommand{
		{Name: "", Address: "a", Latitude: 37, Longitude: 127},
		{Name: "court", Address: " ", Latitude: 37, Longitude: 127},
		{Name: "court", Address: "a", Latitude: 95, Longitude: 127},
		{Name: "court", Address: "a", Latitude: 0, Longitude: 0},
		{Name: "!!!", Address: "a", Latitude: 37, Longitude: 127},
		{Name: strings.Repeat("c", 101), Address: "a", Latitude: 37, Longitude: 127},
		{Name: "court", Address: strings.Repeat("a", 256), Latitude: 37, Longitude: 127},
	}
	for _, c := range cases {
		if _, err := svc.Create(t.Context(), actor, c); !errors.Is(err, ErrInvalidLocation) {
			t.Errorf("%+v: err = %v", c, err)
		}
	}
}

func TestLocationSearch(t *testing.T) {
	h := newHarness(t)
	svc := NewLocationService(h.store, logger.Discard())
	actor := h.user("builder")
	for _, name := range []string{"Yeouido Court", "Jamsil Court", "Mangwon Gym"} {
		if _, err := svc.Create(h.ctx, actor, CreateLocationCommand{Name: name, Address: "Seoul", Latitude: 37.5, Longitude: 127}); err != nil {
			t.Fatal(err)
		}
	}

	got, err := svc.Search(h.ctx, "court", 0)
	if err != nil {
		t.Fatal(err)
	}
	// the harness court plus two new ones
	if len(got) != 3 {
		t.Fatalf("got %d locations", len(got))
	}
	one, _ := svc.Search(h.ctx, "", 1)
	if len(one) != 1 {
		t.Fatalf("limit ignored: %d", len(one))
	}
}

func TestErrorKinds(t *testing.T) {
	wrapped := errors.Join(errors.New("context"), ErrMatchFull)
	e, ok := AsError(wrapped)
	if !ok || e.Kind != KindConflict || e.Code != "MATCH_FULL" {
		t.Fatalf("AsError = %+v %v", e, ok)
	}
	if errors.Is(ErrMatchFull, ErrMatchNotRecruiting) {
		t.Fatal("distinct codes compared equal")
	}
	if !isConcurrency(repository.ErrVersionConflict) || isConcurrency(ErrMatchFull) {
		t.Fatal("isConcurrency misclassifies")
	}
	if _, ok := AsError(errors.New("plain")); ok {
		t.Fatal("plain error treated as domain error")
	}
}
