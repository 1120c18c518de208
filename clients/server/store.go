// store.go — In-memory carrier store keyed by random ids.
package server

import (
	"crypto/rand"
	"encoding/hex"
	"sort"
	"sync"

	"github.com/xob0t/edgestego/pkg/stego"
)

type entry struct {
	name string
	grid *stego.Grid
}

type carrierInfo struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	URL    string `json:"url"`
}

type carrierStore struct {
	mu       sync.RWMutex
	carriers map[string]*entry
}

func newCarrierStore() *carrierStore {
	return &carrierStore{carriers: make(map[string]*entry)}
}

func (cs *carrierStore) add(name string, g *stego.Grid) carrierInfo {
	id := randomID()
	cs.mu.Lock()
	cs.carriers[id] = &entry{name: name, grid: g}
	cs.mu.Unlock()
	return info(id, name, g)
}

// get returns the stored entry. Callers must not modify its grid.
func (cs *carrierStore) get(id string) (*entry, bool) {
	cs.mu.RLock()
	e, ok := cs.carriers[id]
	cs.mu.RUnlock()
	return e, ok
}

func (cs *carrierStore) listAll() []carrierInfo {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	result := make([]carrierInfo, 0, len(cs.carriers))
	for id, e := range cs.carriers {
		result = append(result, info(id, e.name, e.grid))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func (cs *carrierStore) remove(id string) bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if _, ok := cs.carriers[id]; !ok {
		return false
	}
	delete(cs.carriers, id)
	return true
}

func info(id, name string, g *stego.Grid) carrierInfo {
	return carrierInfo{ID: id, Name: name, Width: g.Width, Height: g.Height, URL: "/api/carriers/" + id}
}

func randomID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return hex.EncodeToString(b)
}
