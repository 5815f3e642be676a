package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/lshigami/Quokkas/config"
	"github.com/lshigami/Quokkas/internal/model"
	"github.com/lshigami/Quokkas/internal/repository"
	"github.com/rs/zerolog/log"
)

type SyncState string

const (
	SyncUninitialized SyncState = "uninitialized"
	SyncLoading       SyncState = "loading"
	SyncReady         SyncState = "ready"
)

type SaveState string

const (
	SaveIdle   SaveState = "idle"
	SaveSaving SaveState = "saving"
	SaveSaved  SaveState = "saved"
	SaveError  SaveState = "error"
)

// SyncStatus is the externally visible engine state.
type SyncStatus struct {
	State         SyncState `json:"state"`
	SaveState     SaveState `json:"save_state"`
	LoadWarning   string    `json:"load_warning,omitempty"`
	LoadError     string    `json:"load_error,omitempty"`
	LastSaveError string    `json:"last_save_error,omitempty"`
}

// SyncEngine owns the library value and reconciles it with the remote
// blob store: load-or-fall-back-to-mirror on startup, debounced
// read-compare-write after every mutation. Failed saves are surfaced,
// never retried; the next mutation re-arms the debounce.
type SyncEngine interface {
	Start(ctx context.Context)
	Snapshot() model.Library
	Apply(mutate func(model.Library) (model.Library, bool)) bool
	Flush()
	Status() SyncStatus
}

type syncEngine struct {
	store       repository.RemoteStore
	creds       repository.CredentialSource
	mirror      repository.Mirror
	path        string
	debounce    time.Duration
	saveTimeout time.Duration

	mu            sync.Mutex
	library       model.Library
	state         SyncState
	saveState     SaveState
	loadWarning   string
	loadError     string
	lastSaveError string
	hasCredential bool
	// One-shot latch: mutations applied during the initial load
	// (including the replace-from-remote itself) must not schedule a
	// save, or the just-loaded data is immediately rewritten.
	loaded bool
	timer  *time.Timer
}

func NewSyncEngine(cfg *config.Config, store repository.RemoteStore, creds repository.CredentialSource, mirror repository.Mirror) SyncEngine {
	return &syncEngine{
		store:       store,
		creds:       creds,
		mirror:      mirror,
		path:        cfg.Remote.FilePath,
		debounce:    time.Duration(cfg.Sync.DebounceMS) * time.Millisecond,
		saveTimeout: time.Duration(cfg.Sync.SaveTimeoutMS) * time.Millisecond,
		library:     model.Library{},
		state:       SyncUninitialized,
		saveState:   SaveIdle,
	}
}

func (e *syncEngine) Start(ctx context.Context) {
	e.mu.Lock()
	e.state = SyncLoading
	e.mu.Unlock()

	token, err := e.creds.Issue(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Credential issuance failed; library starts empty and unsynced")
		e.mu.Lock()
		e.loadError = "could not obtain a storage credential: " + err.Error()
		e.library = model.Library{}
		e.state = SyncReady
		e.mu.Unlock()
		return
	}
	e.store.SetToken(token)

	file, err := e.store.Read(ctx, e.path)
	switch {
	case err == nil:
		lib, parseErr := parseLibrary(file.Content)
		e.mu.Lock()
		if parseErr != nil {
			log.Error().Err(parseErr).Msg("Remote library document is malformed")
			e.loadError = "remote library document is malformed: " + parseErr.Error()
			e.library = model.Library{}
		} else {
			e.library = lib
			if storeErr := e.mirror.Store(file.Content, file.SHA); storeErr != nil {
				log.Warn().Err(storeErr).Msg("Failed to update local mirror after load")
			}
		}
		e.hasCredential = true
		e.finishLoadLocked()
		e.mu.Unlock()
		log.Info().Int("subjects", len(e.Snapshot())).Msg("Library loaded from remote")

	case errors.Is(err, repository.ErrNotFound):
		e.mu.Lock()
		e.library = model.Library{}
		if clearErr := e.mirror.Clear(); clearErr != nil {
			log.Warn().Err(clearErr).Msg("Failed to clear stale local mirror")
		}
		e.hasCredential = true
		e.finishLoadLocked()
		e.mu.Unlock()
		log.Info().Msg("No remote library document yet; starting empty")

	default:
		cached, _, ok := e.mirror.Load()
		e.mu.Lock()
		e.hasCredential = true
		if ok {
			lib, parseErr := parseLibrary(cached)
			if parseErr == nil {
				e.library = lib
				e.loadWarning = "remote unreachable; showing locally cached library"
				e.finishLoadLocked()
				e.mu.Unlock()
				log.Warn().Err(err).Msg("Remote read failed; serving cached library")
				return
			}
		}
		e.loadError = "could not load the library: " + err.Error()
		e.library = model.Library{}
		e.state = SyncReady
		e.mu.Unlock()
		log.Error().Err(err).Msg("Remote read failed and no usable local mirror exists")
	}
}

// finishLoadLocked moves to Ready and arms the save latch. Callers hold e.mu.
func (e *syncEngine) finishLoadLocked() {
	e.state = SyncReady
	e.loaded = true
}

func (e *syncEngine) Snapshot() model.Library {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.library
}

// Apply runs a reducer against the current library. When it changed
// anything and the engine is past its initial load with a credential
// in hand, the debounced write-back is (re)armed — a new mutation
// always cancels a pending schedule.
func (e *syncEngine) Apply(mutate func(model.Library) (model.Library, bool)) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	next, changed := mutate(e.library)
	if !changed {
		return false
	}
	e.library = next

	if e.loaded && e.hasCredential {
		if e.timer != nil {
			e.timer.Stop()
		}
		e.timer = time.AfterFunc(e.debounce, e.save)
	}
	return true
}

// Flush runs a pending save immediately instead of waiting out the debounce.
func (e *syncEngine) Flush() {
	e.mu.Lock()
	pending := e.timer != nil
	if pending {
		e.timer.Stop()
		e.timer = nil
	}
	e.mu.Unlock()

	if pending {
		e.save()
	}
}

// save is the debounce body. It deliberately re-marshals the library
// and re-reads the remote version at fire time — never state captured
// when the timer was armed — so edits made during the wait are included
// and a concurrently advanced remote version is respected.
func (e *syncEngine) save() {
	e.mu.Lock()
	e.timer = nil
	e.saveState = SaveSaving
	payload, err := json.Marshal(e.library)
	e.mu.Unlock()
	if err != nil {
		e.recordSaveError("encode library: " + err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.saveTimeout)
	defer cancel()

	sha := ""
	remote, err := e.store.Read(ctx, e.path)
	switch {
	case err == nil:
		sha = remote.SHA
		if jsonEqual(remote.Content, payload) {
			e.mu.Lock()
			e.saveState = SaveSaved
			e.lastSaveError = ""
			e.mu.Unlock()
			log.Debug().Msg("Remote already matches; skipping write")
			return
		}
	case errors.Is(err, repository.ErrNotFound):
		// First write creates the file.
	default:
		e.recordSaveError("re-read before write failed: " + err.Error())
		return
	}

	newSHA, err := e.store.Write(ctx, e.path, payload, sha)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			e.recordSaveError("remote changed concurrently; edit again to retry")
		} else {
			e.recordSaveError(err.Error())
		}
		return
	}

	e.mu.Lock()
	e.saveState = SaveSaved
	e.lastSaveError = ""
	e.mu.Unlock()
	if err := e.mirror.Store(payload, newSHA); err != nil {
		log.Warn().Err(err).Msg("Failed to update local mirror after save")
	}
	log.Info().Str("sha", newSHA).Msg("Library saved to remote")
}

func (e *syncEngine) recordSaveError(msg string) {
	e.mu.Lock()
	e.saveState = SaveError
	e.lastSaveError = msg
	e.mu.Unlock()
	log.Error().Str("reason", msg).Msg("Library save failed")
}

func (e *syncEngine) Status() SyncStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return SyncStatus{
		State:         e.state,
		SaveState:     e.saveState,
		LoadWarning:   e.loadWarning,
		LoadError:     e.loadError,
		LastSaveError: e.lastSaveError,
	}
}

func parseLibrary(raw []byte) (model.Library, error) {
	var lib model.Library
	if err := json.Unmarshal(raw, &lib); err != nil {
		return nil, err
	}
	if lib == nil {
		lib = model.Library{}
	}
	return lib, nil
}

// jsonEqual compares two JSON documents ignoring insignificant whitespace.
func jsonEqual(a, b []byte) bool {
	var ca, cb bytes.Buffer
	if err := json.Compact(&ca, a); err != nil {
		return false
	}
	if err := json.Compact(&cb, b); err != nil {
		return false
	}
	return bytes.Equal(ca.Bytes(), cb.Bytes())
}
