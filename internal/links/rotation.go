package links

import (
	"encoding/json"
	"errors"
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/chimebell/chime/internal/config"
	"github.com/chimebell/chime/pkg/logger"
)

// Pick is one selected link.
type Pick struct {
	// URL is the selected link.
	URL string
	// Index is its position in the sheet, or -1 when unknown.
	Index int
}

// Rotation walks a sheet in the configured selection mode. State is
// persisted next to the sheet so restarts resume where the last run
// left off. Safe for concurrent use.
type Rotation struct {
	mode      string
	urls      []string
	statePath string
	l         logger.Logger

	mu     sync.Mutex
	cursor int   // sequence: next index
	order  []int // shuffle: permutation being consumed
	opos   int   // shuffle: position within order
	rng    *rand.Rand
}

// rotationState is the persisted cursor. A state written for a
// different mode or sheet size is discarded on load.
type rotationState struct {
	Mode     string `json:"mode"`
	Count    int    `json:"count"`
	Cursor   int    `json:"cursor"`
	Order    []int  `json:"order,omitempty"`
	OrderPos int    `json:"order_pos,omitempty"`
}

// NewRotation builds a rotation over a sheet. An empty statePath puts
// the state file next to the sheet as "<links>.state".
func NewRotation(sheet *Sheet, mode, statePath string, l logger.Logger) (*Rotation, error) {
	if sheet == nil || len(sheet.URLs) == 0 {
		return nil, ErrLinksEmpty
	}
	switch mode {
	case config.SelectionSequence, config.SelectionRandom, config.SelectionShuffle:
	default:
		return nil, errors.New("unknown selection mode " + mode)
	}
	if statePath == "" {
		statePath = sheet.Path + ".state"
	}
	if l == nil {
		l = logger.NewNopLogger()
	}

	r := &Rotation{
		mode:      mode,
		urls:      sheet.URLs,
		statePath: statePath,
		l:         l,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	r.loadState()
	if r.mode == config.SelectionShuffle && len(r.order) == 0 {
		r.reshuffle()
	}
	return r, nil
}

// loadState restores a persisted cursor when it matches this sheet.
// A missing, corrupt or incompatible state starts fresh, never fails.
func (r *Rotation) loadState() {
	data, err := os.ReadFile(r.statePath)
	if err != nil {
		return
	}
	var st rotationState
	if err := json.Unmarshal(data, &st); err != nil {
		r.l.Warning("rotation state %s corrupt, starting fresh: %s", r.statePath, err.Error())
		return
	}
	if st.Mode != r.mode || st.Count != len(r.urls) {
		return
	}
	if st.Cursor >= 0 && st.Cursor < len(r.urls) {
		r.cursor = st.Cursor
	}
	if r.mode == config.SelectionShuffle && len(st.Order) == len(r.urls) &&
		st.OrderPos >= 0 && st.OrderPos <= len(st.Order) && validPermutation(st.Order) {
		r.order = st.Order
		r.opos = st.OrderPos
	}
}

func validPermutation(order []int) bool {
	seen := make(map[int]bool, len(order))
	for _, i := range order {
		if i < 0 || i >= len(order) || seen[i] {
			return false
		}
		seen[i] = true
	}
	return true
}

func (r *Rotation) persist() {
	st := rotationState{
		Mode:     r.mode,
		Count:    len(r.urls),
		Cursor:   r.cursor,
		Order:    r.order,
		OrderPos: r.opos,
	}
	data, err := json.Marshal(&st)
	if err != nil {
		return
	}
	if err := os.WriteFile(r.statePath, data, 0644); err != nil {
		r.l.Warning("persist rotation state: %s", err.Error())
	}
}

func (r *Rotation) reshuffle() {
	r.order = r.rng.Perm(len(r.urls))
	r.opos = 0
}

// Next returns the next link for the configured mode and persists the
// advanced cursor.
func (r *Rotation) Next() (Pick, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.urls) == 0 {
		return Pick{Index: -1}, ErrLinksEmpty
	}

	var idx int
	switch r.mode {
	case config.SelectionRandom:
		idx = r.rng.Intn(len(r.urls))
	case config.SelectionShuffle:
		if r.opos >= len(r.order) {
			r.reshuffle()
		}
		idx = r.order[r.opos]
		r.opos++
	default: // sequence
		idx = r.cursor
		r.cursor = (r.cursor + 1) % len(r.urls)
	}
	r.persist()
	return Pick{URL: r.urls[idx], Index: idx}, nil
}

// Peek reports the upcoming pick where the mode makes it knowable:
// sequence always, shuffle while the current cycle has entries left.
// Random mode and an exhausted shuffle cycle yield Index -1.
func (r *Rotation) Peek() Pick {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.mode {
	case config.SelectionSequence:
		return Pick{URL: r.urls[r.cursor], Index: r.cursor}
	case config.SelectionShuffle:
		if r.opos < len(r.order) {
			idx := r.order[r.opos]
			return Pick{URL: r.urls[idx], Index: idx}
		}
	}
	return Pick{Index: -1}
}

// Len is the sheet size.
func (r *Rotation) Len() int {
	return len(r.urls)
}

// Mode is the selection mode this rotation runs.
func (r *Rotation) Mode() string {
	return r.mode
}

// URLs returns a copy of the sheet links in sheet order.
func (r *Rotation) URLs() []string {
	urls := make([]string, len(r.urls))
	copy(urls, r.urls)
	return urls
}
