package ingest

import (
	"sort"
	"strings"

	"github.com/terrascope/ingest/internal/models"
)

// Edge kinds in a linkage's dependency map. An address that appears in both
// depends_on and a scanned expression keeps the explicit kind.
const (
	edgeExplicit = "depends_on"
	edgeImplicit = "implicit"
)

// NormalizeAddress strips the instance index suffix from a resource address
// so that config blocks, state instances, and planned changes for the same
// resource land on one linkage key.
func NormalizeAddress(addr string) string {
	if i := strings.IndexByte(addr, '['); i >= 0 {
		return addr[:i]
	}
	return addr
}

// linker accumulates per-address facts from the three views and produces the
// final sorted linkage list.
type linker struct {
	external map[string]string
	byAddr   map[string]*models.Linkage
}

func newLinker(externalIDs map[string]string) *linker {
	return &linker{
		external: externalIDs,
		byAddr:   make(map[string]*models.Linkage),
	}
}

func (l *linker) entry(addr string) *models.Linkage {
	key := NormalizeAddress(addr)
	e, ok := l.byAddr[key]
	if !ok {
		e = &models.Linkage{Address: key, ExternalID: l.externalID(key)}
		l.byAddr[key] = e
	}
	return e
}

func (l *linker) externalID(addr string) string {
	if l.external == nil {
		return ""
	}
	return l.external[addr]
}

func (l *linker) addConfig(b models.ConfigBlock) {
	e := l.entry(b.Address)
	e.ConfigFile = b.SourceFile
	e.ConfigLine = b.SourceLine
	l.addEdges(e, b.ExplicitDependencies, edgeExplicit)
	l.addEdges(e, b.ImplicitDependencies, edgeImplicit)
}

func (l *linker) addState(inst models.StateResourceInstance) {
	e := l.entry(inst.Address)
	e.InState = true
	l.addEdges(e, inst.Dependencies, edgeImplicit)
}

func (l *linker) addChange(c models.PlannedChange) {
	l.entry(c.Address).PlannedAction = c.Action
}

func (l *linker) addEdges(e *models.Linkage, targets []string, kind string) {
	if len(targets) == 0 {
		return
	}
	if e.Dependencies == nil {
		e.Dependencies = make(map[string]string)
	}
	for _, t := range targets {
		key := NormalizeAddress(t)
		if e.Dependencies[key] == edgeExplicit {
			continue
		}
		e.Dependencies[key] = kind
	}
}

func (l *linker) linkages() []models.Linkage {
	out := make([]models.Linkage, 0, len(l.byAddr))
	for _, e := range l.byAddr {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}
