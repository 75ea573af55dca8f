package signalhandler

import (
	"runtime"
	"testing"
)

func TestGetOptimalProcs(t *testing.T) {
	procs := GetOptimalProcs()
	if procs < 1 {
		t.Fatalf("GetOptimalProcs() = %d, want at least 1", procs)
	}
	if procs > runtime.NumCPU() {
		t.Errorf("GetOptimalProcs() = %d exceeds NumCPU %d", procs, runtime.NumCPU())
	}
}

func TestSetupHandlerCancel(t *testing.T) {
	ctx, cancel := SetupHandler(nil)
	if ctx.Err() != nil {
		t.Fatal("context cancelled before any signal")
	}
	cancel()
	<-ctx.Done()
}
