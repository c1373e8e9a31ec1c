package feed

import "fmt"

// Tab selects how a feed is ordered.
type Tab string

const (
	// TabHome is the ranked timeline.
	TabHome Tab = "home"
	// TabLatest is the global timeline, newest first.
	TabLatest Tab = "latest"
	// TabProfile is one author's posts, newest first.
	TabProfile Tab = "profile"
)

// ParseTab validates a tab name. An empty name selects the home tab.
func ParseTab(name string) (Tab, error) {
	switch Tab(name) {
	case "":
		return TabHome, nil
	case TabHome, TabLatest, TabProfile:
		return Tab(name), nil
	}
	return "", fmt.Errorf("unknown feed tab %q", name)
}

// Ranked reports whether the tab uses the scoring function.
func (t Tab) Ranked() bool {
	return t == TabHome
}
