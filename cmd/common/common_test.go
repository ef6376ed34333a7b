package common

import (
	"errors"
	"flag"
	"testing"

	"github.com/urfave/cli"
	"github.com/vbauerster/mpb/v8"
)

func newTestContext() *cli.Context {
	app := cli.NewApp()
	app.Name = "chime"
	app.Version = "test"
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	ctx := cli.NewContext(app, set, nil)
	ctx.Command = cli.Command{Name: "cmd"}
	return ctx
}

func TestInitFetchBar(t *testing.T) {
	p := mpb.New()
	bar := InitFetchBar(p, "bell.mp3", 100)
	if bar == nil {
		t.Fatal("expected bar")
	}
}

// Unknown content lengths get a bar without a completion trigger.
func TestInitFetchBarUnknownTotal(t *testing.T) {
	p := mpb.New()
	bar := InitFetchBar(p, "bell.mp3", -1)
	if bar == nil {
		t.Fatal("expected bar")
	}
}

func TestInitFetchBarLongName(t *testing.T) {
	p := mpb.New()
	bar := InitFetchBar(p, "a-very-long-clip-name-that-needs-truncating.mp3", 100)
	if bar == nil {
		t.Fatal("expected bar")
	}
}

func TestBeautAndReplic(t *testing.T) {
	if got := Beaut("hi", 4); got != " hi " {
		t.Fatalf("unexpected beaut output: %q", got)
	}
	vals := replic('x', 3)
	if len(vals) != 3 || vals[0] != 'x' {
		t.Fatalf("unexpected replic output: %v", vals)
	}
}

func TestBeautOddRemainder(t *testing.T) {
	if got := Beaut("hi", 5); got != " hi  " {
		t.Fatalf("unexpected beaut output for odd padding: %q", got)
	}
}

func TestPrintRuntimeErr(t *testing.T) {
	PrintRuntimeErr(nil, "cmd", "action", nil)
	PrintRuntimeErr(newTestContext(), "cmd", "action", errors.New("boom"))
}

func TestPrintErrWithHelp(t *testing.T) {
	ctx := newTestContext()
	called := false
	orig := showAppHelpAndExit
	showAppHelpAndExit = func(*cli.Context, int) {
		called = true
	}
	defer func() { showAppHelpAndExit = orig }()

	if err := PrintErrWithHelp(ctx, errors.New("oops")); err != nil {
		t.Fatalf("PrintErrWithHelp: %v", err)
	}
	if !called {
		t.Fatal("expected help to be called")
	}
}

func TestPrintErrWithHelpFlagHelpRequested(t *testing.T) {
	ctx := newTestContext()
	called := false
	orig := showAppHelpAndExit
	showAppHelpAndExit = func(*cli.Context, int) {
		called = true
	}
	defer func() { showAppHelpAndExit = orig }()

	if err := PrintErrWithHelp(ctx, errors.New("flag: help requested")); err != nil {
		t.Fatalf("PrintErrWithHelp: %v", err)
	}
	if !called {
		t.Fatal("expected help to be called")
	}
}

func TestPrintErrWithCmdHelp(t *testing.T) {
	ctx := newTestContext()
	called := false
	orig := showCommandHelp
	showCommandHelp = func(*cli.Context, string) error {
		called = true
		return nil
	}
	defer func() { showCommandHelp = orig }()

	if err := PrintErrWithCmdHelp(ctx, errors.New("oops")); err != nil {
		t.Fatalf("PrintErrWithCmdHelp: %v", err)
	}
	if !called {
		t.Fatal("expected command help to be called")
	}
}

func TestPrintErrWithCmdHelpNilError(t *testing.T) {
	if err := PrintErrWithCmdHelp(newTestContext(), nil); err != nil {
		t.Fatalf("PrintErrWithCmdHelp(nil): %v", err)
	}
}

func TestUsageErrorCallback(t *testing.T) {
	ctx := newTestContext()
	origCmd := showCommandHelp
	showCommandHelp = func(*cli.Context, string) error { return nil }
	defer func() { showCommandHelp = origCmd }()

	if err := UsageErrorCallback(ctx, errors.New("bad flag"), false); err != nil {
		t.Fatalf("UsageErrorCallback: %v", err)
	}

	// App-level context routes to the app help.
	ctx.Command = cli.Command{}
	origApp := showAppHelpAndExit
	showAppHelpAndExit = func(*cli.Context, int) {}
	defer func() { showAppHelpAndExit = origApp }()
	if err := UsageErrorCallback(ctx, errors.New("bad flag"), false); err != nil {
		t.Fatalf("UsageErrorCallback app-level: %v", err)
	}
}

func TestGetVersion(t *testing.T) {
	VersionCmdStr = "chime test"
	if err := GetVersion(newTestContext()); err != nil {
		t.Fatalf("GetVersion: %v", err)
	}
}
