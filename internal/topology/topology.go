// Package topology parses a cluster descriptor directory into an
// ordered set of node groups, per spec.md §4.C and §6.
package topology

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/jkachika/galileo/internal/model"
)

// Node is one addressable cluster member.
type Node struct {
	Hostname string
	Port     int
}

func (n Node) String() string {
	return n.Hostname + ":" + strconv.Itoa(n.Port)
}

// Group is an ordered list of nodes sharing a geohash-prefix bucket;
// order is line order within the descriptor file and participates in
// hashing (spec.md §6).
type Group struct {
	Name  string
	Nodes []Node
}

// NetworkInfo is the immutable, loaded cluster topology: an ordered
// list of groups, each file in the descriptor directory becoming one
// group in filename order (spec.md §4.C, §6).
type NetworkInfo struct {
	groups []Group
}

// Load reads every regular file directly under dir as one group, file
// name sorted lexically, each line "hostname:port"; blank lines and
// '#' comments are ignored.
func Load(dir string) (*NetworkInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, model.NewIOError("reading topology directory", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var groups []Group
	for _, name := range names {
		nodes, err := loadGroupFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		groups = append(groups, Group{Name: name, Nodes: nodes})
	}
	return &NetworkInfo{groups: groups}, nil
}

func loadGroupFile(path string) ([]Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, model.NewIOError("opening topology descriptor "+path, err)
	}
	defer f.Close()

	var nodes []Node
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		host, portStr, found := strings.Cut(line, ":")
		if !found {
			return nil, model.NewValidationError("malformed topology line (want host:port): " + line)
		}
		port, err := strconv.Atoi(strings.TrimSpace(portStr))
		if err != nil {
			return nil, model.NewValidationError("malformed port in topology line: " + line)
		}
		nodes = append(nodes, Node{Hostname: strings.TrimSpace(host), Port: port})
	}
	if err := scanner.Err(); err != nil {
		return nil, model.NewIOError("reading topology descriptor "+path, err)
	}
	return nodes, nil
}

// AllGroups returns the ordered groups as loaded.
func (n *NetworkInfo) AllGroups() []Group {
	return n.groups
}

// AllNodes flattens every group's nodes, group order then intra-group
// order.
func (n *NetworkInfo) AllNodes() []Node {
	var all []Node
	for _, g := range n.groups {
		all = append(all, g.Nodes...)
	}
	return all
}

// GroupOf returns the group containing node (matched by host, tolerant
// of short vs fully-qualified name) and whether it was found.
func (n *NetworkInfo) GroupOf(node Node) (Group, bool) {
	for _, g := range n.groups {
		for _, candidate := range g.Nodes {
			if hostsMatch(candidate.Hostname, node.Hostname) && candidate.Port == node.Port {
				return g, true
			}
		}
	}
	return Group{}, false
}

// ContainsHost reports whether any node's hostname matches hostname,
// comparing tolerant of short-name vs FQDN form.
func (n *NetworkInfo) ContainsHost(hostname string) bool {
	for _, g := range n.groups {
		for _, node := range g.Nodes {
			if hostsMatch(node.Hostname, hostname) {
				return true
			}
		}
	}
	return false
}

// GroupCount returns the number of groups in the topology.
func (n *NetworkInfo) GroupCount() int {
	return len(n.groups)
}

// hostsMatch compares two hostnames tolerant of one being a short name
// and the other fully-qualified (e.g. "node1" vs "node1.cluster.local").
func hostsMatch(a, b string) bool {
	if strings.EqualFold(a, b) {
		return true
	}
	shortA, _, _ := strings.Cut(a, ".")
	shortB, _, _ := strings.Cut(b, ".")
	return strings.EqualFold(shortA, shortB)
}
