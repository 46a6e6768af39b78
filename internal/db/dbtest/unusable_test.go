package dbtest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

// recordingTB captures Fatalf instead of stopping the test.
type recordingTB struct {
	testing.TB
	msgs []string
}

func (r *recordingTB) Helper() {}

func (r *recordingTB) Fatalf(format string, args ...any) {
	r.msgs = append(r.msgs, fmt.Sprintf(format, args...))
}

func TestUnusable_FailsTest(t *testing.T) {
	ctx := context.Background()
	rec := &recordingTB{TB: t}
	u := Unusable{TB: rec}

	_, _ = u.Prepare(ctx, "SELECT 1")
	_, _ = u.Execute(ctx, nil)
	_, _ = u.Query(ctx, nil)
	_, _ = u.QueryOne(ctx, nil)
	_, _ = u.QueryOptional(ctx, nil)
	_, _ = u.Begin(ctx)
	_ = u.Commit(ctx)
	_ = u.Rollback(ctx)

	want := []string{"Prepare", "Execute", "Query", "QueryOne", "QueryOptional", "Begin", "Commit", "Rollback"}
	if len(rec.msgs) != len(want) {
		t.Fatalf("got %d failures, want %d: %v", len(rec.msgs), len(want), rec.msgs)
	}
	for i, op := range want {
		if !strings.Contains(rec.msgs[i], "unexpected "+op+" ") {
			t.Errorf("failure %d = %q; want it to name %s", i, rec.msgs[i], op)
		}
	}
}

func TestUnusable_PanicsWithoutTB(t *testing.T) {
	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, ErrUnusable) {
			t.Fatalf("recovered %v; want ErrUnusable", r)
		}
	}()

	_, _ = Unusable{}.Begin(context.Background())
	t.Fatal("Begin on unusable client returned")
}
