package cloudreve

import "time"

// EntryType distinguishes files from folders in a listing.
type EntryType int

// Backend values of the file "type" field.
const (
	EntryFile   EntryType = 0
	EntryFolder EntryType = 1
)

func (t EntryType) String() string {
	if t == EntryFolder {
		return "folder"
	}

	return "file"
}

// FileEntry is one record of a directory listing, normalized from the
// backend's file object.
type FileEntry struct {
	Name      string
	Type      EntryType
	Path      string // full URI, e.g. cloudreve://my/docs/a.txt
	Size      int64
	UpdatedAt time.Time // zero if absent
}

// IsFolder reports whether the entry is a directory.
func (e FileEntry) IsFolder() bool {
	return e.Type == EntryFolder
}

// FileListing is a single page of a directory listing.
type FileListing struct {
	Entries   []FileEntry
	NextToken string // continuation token for the next page; "" if none
}

// FileSource is a time-limited direct download URL.
type FileSource struct {
	URL     string    // pre-signed; NEVER log
	Expires time.Time // zero if the backend did not say
}

// Task is a workflow task from the task list, normalized.
type Task struct {
	Status   string
	Error    string
	Source   string          // summary.props.src_str
	Download *DownloadDetail // nil until the backend materializes it
}

// Task statuses that end a workflow without success.
const (
	TaskStatusError    = "error"
	TaskStatusCanceled = "canceled"
)

// DownloadDetail is the remote-download progress attached to a task.
type DownloadDetail struct {
	Name       string
	TotalSize  int64
	Downloaded int64
	Speed      int64
	Files      []DownloadFile
}

// DownloadFile is one file within a remote download.
type DownloadFile struct {
	Name     string
	Size     int64
	Progress float64 // fraction in [0,1]
}
