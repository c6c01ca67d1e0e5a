package keypool

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func fixedClock(t *time.Time) func() time.Time {
	return func() time.Time { return *t }
}

func TestNext_RoundRobin(t *testing.T) {
	p := New(Config{})
	p.Add("SERPER", "k1")
	p.Add("SERPER", "k2")
	p.Add("SERPER", "k3")

	var got []string
	for i := 0; i < 6; i++ {
		k, ok := p.Next("SERPER")
		if !ok {
			t.Fatalf("Next() returned no key at call %d", i)
		}
		got = append(got, k.Secret)
	}

	want := []string{"k1", "k2", "k3", "k1", "k2", "k3"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("call %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestNext_UnknownProvider(t *testing.T) {
	p := New(Config{})
	if _, ok := p.Next("NOPE"); ok {
		t.Error("Next() returned a key for an unknown provider")
	}
}

func TestMarkFailed_SkipsCooling(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	p := New(Config{Now: fixedClock(&now)})
	p.Add("EXA", "k1")
	p.Add("EXA", "k2")

	k1, _ := p.Next("EXA")
	p.MarkFailed(k1, FailRateLimit)

	for i := 0; i < 3; i++ {
		k, ok := p.Next("EXA")
		if !ok {
			t.Fatal("Next() returned no key while k2 should be active")
		}
		if k.Secret != "k2" {
			t.Errorf("got %q, want k2 while k1 cools down", k.Secret)
		}
	}
}

func TestMarkFailed_AllCooling(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	p := New(Config{Now: fixedClock(&now)})
	p.Add("JINA", "k1")

	k, _ := p.Next("JINA")
	p.MarkFailed(k, FailAuth)

	if _, ok := p.Next("JINA"); ok {
		t.Error("Next() handed out a credential inside its cooldown")
	}
}

func TestCooldown_Reactivation(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	p := New(Config{Cooldown: 5 * time.Minute, Now: fixedClock(&now)})
	p.Add("GOOGLE", "k1")

	k, _ := p.Next("GOOGLE")
	p.MarkFailed(k, FailServer)

	// Just before expiry: unavailable.
	now = now.Add(5*time.Minute - time.Second)
	if _, ok := p.Next("GOOGLE"); ok {
		t.Error("credential available before cooldown expiry")
	}

	// Just after expiry: available again.
	now = now.Add(2 * time.Second)
	if _, ok := p.Next("GOOGLE"); !ok {
		t.Error("credential not reactivated after cooldown expiry")
	}
}

func TestLoadEnvFunc(t *testing.T) {
	env := map[string]string{
		"SERPER_API_KEY":   "a",
		"SERPER_API_KEY_1": "b",
		"SERPER_API_KEY_2": "c",
		"EXA_API_KEY_1":    "b", // numbered key without a primary still counts
	}
	p := New(Config{})
	p.LoadEnvFunc([]string{"SERPER", "EXA", "JINA"}, func(k string) string { return env[k] })

	stats := p.Stats()
	if stats["SERPER"].Total != 3 {
		t.Errorf("SERPER keys = %d, want 3", stats["SERPER"].Total)
	}
	if stats["EXA"].Total != 1 {
		t.Errorf("EXA keys = %d, want 1", stats["EXA"].Total)
	}
	if _, ok := stats["JINA"]; ok {
		t.Error("JINA should have no pool without keys")
	}
}

func TestStats_Counters(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	p := New(Config{Now: fixedClock(&now)})
	p.Add("X", "k1")
	p.Add("X", "k2")

	k, _ := p.Next("X")
	_, _ = p.Next("X")
	p.MarkFailed(k, FailRateLimit)

	s := p.Stats()["X"]
	if s.Rotations != 2 {
		t.Errorf("Rotations = %d, want 2", s.Rotations)
	}
	if s.Failures != 1 {
		t.Errorf("Failures = %d, want 1", s.Failures)
	}
	if s.Active != 1 || s.Cooling != 1 {
		t.Errorf("Active/Cooling = %d/%d, want 1/1", s.Active, s.Cooling)
	}
}

func TestNext_Concurrent(t *testing.T) {
	p := New(Config{})
	for i := 0; i < 4; i++ {
		p.Add("SUPADATA", fmt.Sprintf("k%d", i))
	}

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if k, ok := p.Next("SUPADATA"); ok && j%10 == 0 {
					p.MarkFailed(k, FailOther)
				}
			}
		}()
	}
	wg.Wait()

	s := p.Stats()["SUPADATA"]
	if s.Total != 4 {
		t.Errorf("Total = %d, want 4", s.Total)
	}
}
