package api

import (
	"encoding/json"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Status is the state of a build in its dispatch lifecycle
type Status string

const (
	StatusScheduled   Status = "scheduled"
	StatusCloning     Status = "clonning"
	StatusReading     Status = "reading"
	StatusDispatching Status = "dispatching"
	StatusSucceeded   Status = "succeeded"
	StatusFailed      Status = "failed"
)

var statusRanks = map[Status]int{
	StatusScheduled:   0,
	StatusCloning:     1,
	StatusReading:     2,
	StatusDispatching: 3,
	StatusSucceeded:   4,
	StatusFailed:      5,
}

// Rank orders the statuses; a build only ever moves to a higher rank. Unknown statuses rank below scheduled.
func (s Status) Rank() int {
	if rank, ok := statusRanks[s]; ok {
		return rank
	}
	return -1
}

// IsTerminal returns true for succeeded and failed
func (s Status) IsTerminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// StatusesBelow returns all known statuses a build can transition from to reach s
func StatusesBelow(s Status) (statuses []Status) {
	for status, rank := range statusRanks {
		if rank < s.Rank() {
			statuses = append(statuses, status)
		}
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Rank() < statuses[j].Rank() })
	return
}

const (
	SourceTypeGit   = "git"
	SourceTypeLocal = "local"
)

// Build represents a single requested packaging run of a project's source at a given ref
type Build struct {
	ID             string     `json:"id_"`
	User           string     `json:"user"`
	Project        string     `json:"project"`
	SourceURL      string     `json:"source_url"`
	SourceType     string     `json:"source_type"`
	Branch         string     `json:"branch,omitempty"`
	Commit         string     `json:"commit,omitempty"`
	ForcedDistro   string     `json:"forced_distro,omitempty"`
	Status         Status     `json:"status,omitempty"`
	CommitterName  string     `json:"committer_name,omitempty"`
	CommitterEmail string     `json:"committer_email,omitempty"`
	Message        string     `json:"message,omitempty"`
	Created        time.Time  `json:"created"`
	Finished       *time.Time `json:"finished,omitempty"`
}

// ErrInvalidBuildIdentifier is returned for a user, project or id that can't be used as a single folder name
var ErrInvalidBuildIdentifier = errors.New("invalid build identifier")

// ValidateIdentifiers checks user, project and id each stay a single folder under the workspace
func (b *Build) ValidateIdentifiers() error {
	for field, value := range map[string]string{"user": b.User, "project": b.Project, "id": b.ID} {
		if value == "" || value == "." || value == ".." || strings.ContainsAny(value, `/\`) {
			return errors.Wrapf(ErrInvalidBuildIdentifier, "%v %q", field, value)
		}
	}
	return nil
}

// WorkerName identifies the worker dispatching this build in logs
func (b *Build) WorkerName() string {
	return strings.Join([]string{b.User, b.Project, b.ID}, "__")
}

// FolderPath returns the directory owned by the worker of this build
func (b *Build) FolderPath(workspace string) string {
	return filepath.Join(workspace, b.User, b.Project, "builds", b.ID)
}

// SourceFolderPath returns the directory the sources are cloned or copied into
func (b *Build) SourceFolderPath(workspace string) string {
	return filepath.Join(b.FolderPath(workspace), "sources")
}

// LogPath returns the path package builders write their output to
func (b *Build) LogPath(workspace string) string {
	return filepath.Join(b.FolderPath(workspace), "output", b.ID+".log")
}

// SetStatus moves the build to status if it ranks higher than the current one and reports whether it changed
func (b *Build) SetStatus(status Status) bool {
	if status.Rank() <= b.Status.Rank() {
		return false
	}
	b.Status = status
	return true
}

// Finishing records the completion time
func (b *Build) Finishing(now time.Time) {
	b.Finished = &now
}

// Dumps serializes the build into a snapshot that can be embedded in a task message
func (b *Build) Dumps() (json.RawMessage, error) {
	return json.Marshal(b)
}

// BuildConfig is one distro's build specification in a packer manifest
type BuildConfig map[string]interface{}

// Type returns the builder type that selects the queue
func (c BuildConfig) Type() (string, bool) {
	value, ok := c["type"]
	if !ok || value == nil {
		return "", false
	}
	if s, ok := value.(string); ok {
		return s, s != ""
	}
	return "", false
}

// Enrich returns a copy of the config with the fields a package builder needs to locate its work
func (c BuildConfig) Enrich(distro, branch, rootFolder string) BuildConfig {
	enriched := make(BuildConfig, len(c)+3)
	for k, v := range c {
		enriched[k] = v
	}
	enriched["distro"] = distro
	if branch != "" {
		enriched["branch"] = branch
	} else {
		enriched["branch"] = nil
	}
	enriched["root_folder"] = rootFolder
	return enriched
}

// TaskMessage is published to a builder queue, one per distro and manifest
type TaskMessage struct {
	DistroName string          `json:"distro_name"`
	BuildConf  BuildConfig     `json:"build_conf"`
	RootFolder string          `json:"root_folder"`
	LogPath    string          `json:"log_path"`
	ID         string          `json:"id_"`
	Build      json.RawMessage `json:"build"`
}

// QueueName returns the queue consumed by builders of type builderType
func QueueName(builderType string) string {
	return builderType + ".queue"
}
