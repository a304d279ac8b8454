package gc

import "github.com/projecteru2/gcstore/store"

// message is the closed sum type the coordinator's mailbox carries. Each
// concrete type below implements it via an unexported marker method —
// the closest Go gets to spec.md §9's "tagged variant" guidance.
type message interface {
	isMessage()
}

type runGC struct{}

func (runGC) isMessage() {}

// storeApp mirrors StoreApp(id, Some(v)|None, handle). A nil Version means
// "store the app itself" (the None case); a non-nil Version means "store
// this version" (the Some case).
type storeApp struct {
	id      store.PathID
	version *store.Version
	done    chan<- error
}

func (storeApp) isMessage() {}

// storePod is the identical shape as storeApp — pods are symmetric.
type storePod struct {
	id      store.PathID
	version *store.Version
	done    chan<- error
}

func (storePod) isMessage() {}

type storeRoot struct {
	root store.RootSnapshot
	done chan<- error
}

func (storeRoot) isMessage() {}

type storePlan struct {
	plan store.Plan
	done chan<- error
}

func (storePlan) isMessage() {}

type wakeUp struct{}

func (wakeUp) isMessage() {}

type scanDone struct {
	result ScanResult
	err    error
}

func (scanDone) isMessage() {}

type compactDone struct {
	err error
}

func (compactDone) isMessage() {}
