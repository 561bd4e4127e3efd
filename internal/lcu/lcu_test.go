package lcu

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/large-farva/fast-trigger/internal/astro"
	"github.com/large-farva/fast-trigger/internal/beam"
	"github.com/large-farva/fast-trigger/internal/station"
	"github.com/large-farva/fast-trigger/internal/trigger"
)

type fakeRunner struct {
	out  string
	err  error
	cmds []string
}

func (f *fakeRunner) Run(_ context.Context, cmd string) (string, error) {
	f.cmds = append(f.cmds, cmd)
	return f.out, f.err
}

func testRequest() trigger.ObservationRequest {
	return trigger.ObservationRequest{
		Station:    "chilbolton",
		TargetName: "SWIFT_517234-259",
		Calibrator: "3C196",
		Duration:   1800,
		AntennaSet: trigger.DefaultAntennaSet,
		RCUMode:    trigger.DefaultRCUMode,
		Plan:       beam.DefaultLayout.Plan(astro.MustEquatorial(180, 0), astro.MustEquatorial(123.4, 48.2)),
	}
}

var chilbolton = station.Descriptor{Name: "LOFAR-UK", ShortName: "Chilbolton"}

func TestBeamctlLines(t *testing.T) {
	lines := BeamctlLines(testRequest(), "0:191")
	if len(lines) != 8 {
		t.Fatalf("got %d lines", len(lines))
	}

	want0 := "beamctl --antennaset=HBA_DUAL --rcus=0:191 --rcumode=5 --subbands=220:250 --beamlets=0:30 --anadir=3.141593,0.000000,J2000 --digdir=3.141593,0.000000,J2000"
	if lines[0] != want0 {
		t.Fatalf("line 0:\n got %s\nwant %s", lines[0], want0)
	}
	// first calibrator beam starts after the 124 science beamlets
	if !strings.Contains(lines[1], "--subbands=220:249 --beamlets=124:153") {
		t.Fatalf("line 1: %s", lines[1])
	}
	if !strings.Contains(lines[6], "--subbands=313:343 --beamlets=93:123") {
		t.Fatalf("line 6: %s", lines[6])
	}
	if !strings.Contains(lines[7], "--beamlets=214:243") {
		t.Fatalf("line 7: %s", lines[7])
	}
}

func TestScriptHoldsLockForDuration(t *testing.T) {
	script := Script(testRequest(), DefaultSettings)
	lines := strings.Split(strings.TrimSpace(script), "\n")
	if lines[0] != "touch /tmp/fasttrigger.lock" {
		t.Fatalf("first line %q", lines[0])
	}
	if lines[len(lines)-1] != "rm -f /tmp/fasttrigger.lock" {
		t.Fatalf("last line %q", lines[len(lines)-1])
	}
	if !strings.Contains(script, "sleep 1800\nkillall beamctl\n") {
		t.Fatalf("script:\n%s", script)
	}
}

func TestSubmitterDryRunDoesNotRun(t *testing.T) {
	r := &fakeRunner{}
	s := NewSubmitter(map[string]Runner{"chilbolton": r}, Settings{}, zerolog.Nop())

	if err := s.Submit(context.Background(), chilbolton, testRequest(), true); err != nil {
		t.Fatal(err)
	}
	if len(r.cmds) != 0 {
		t.Fatalf("runner called in dry run: %v", r.cmds)
	}
}

func TestSubmitterLive(t *testing.T) {
	r := &fakeRunner{}
	s := NewSubmitter(map[string]Runner{"chilbolton": r}, Settings{}, zerolog.Nop())

	if err := s.Submit(context.Background(), chilbolton, testRequest(), false); err != nil {
		t.Fatal(err)
	}
	if len(r.cmds) != 1 {
		t.Fatalf("runner calls = %d", len(r.cmds))
	}
	if !strings.HasPrefix(r.cmds[0], "nohup sh -c 'touch ") || !strings.HasSuffix(r.cmds[0], "' >/dev/null 2>&1 &") {
		t.Fatalf("cmd = %s", r.cmds[0])
	}
}

func TestSubmitterErrors(t *testing.T) {
	s := NewSubmitter(nil, Settings{}, zerolog.Nop())
	if err := s.Submit(context.Background(), chilbolton, testRequest(), false); err == nil {
		t.Fatal("expected error for station without LCU")
	}

	r := &fakeRunner{err: errors.New("exit status 1")}
	s = NewSubmitter(map[string]Runner{"chilbolton": r}, Settings{}, zerolog.Nop())
	err := s.Submit(context.Background(), chilbolton, testRequest(), false)
	if err == nil || !strings.Contains(err.Error(), "exit status 1") {
		t.Fatalf("err = %v", err)
	}
}

func TestProbe(t *testing.T) {
	tests := []struct {
		out  string
		err  error
		want station.Availability
		fail bool
	}{
		{out: "busy\n", want: station.Busy},
		{out: "3\n", want: station.Available},
		{out: "6", want: station.Available},
		{out: "1\n", want: station.Unavailable},
		{out: "garbage", fail: true},
		{err: errors.New("dial tcp: timeout"), fail: true},
	}
	for _, tc := range tests {
		r := &fakeRunner{out: tc.out, err: tc.err}
		p := NewProbe(r, Settings{}, 0)
		res, err := p.Check(context.Background())
		if tc.fail {
			if err == nil {
				t.Fatalf("%q: expected error", tc.out)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: %v", tc.out, err)
		}
		if res.State != tc.want {
			t.Fatalf("%q: state = %v, want %v", tc.out, res.State, tc.want)
		}
		if r.cmds[0] != p.Command() {
			t.Fatalf("command = %q", r.cmds[0])
		}
	}
}

func TestShellQuote(t *testing.T) {
	if got := shellQuote("it's"); got != `'it'\''s'` {
		t.Fatalf("got %s", got)
	}
}
