package logsstruct

// TreeLogNode is a folder or file under the log directory.
type TreeLogNode struct {
	ID       string        `json:"id"`
	Label    string        `json:"label"`
	FileType string        `json:"fileType"`
	Children []TreeLogNode `json:"children,omitempty"`
}

// LogEntry is one line of a day's JSON log file.
type LogEntry struct {
	Time    string                 `json:"time"`
	Level   string                 `json:"level"`
	Message string                 `json:"msg"`
	Caller  string                 `json:"caller,omitempty"`
	Fields  map[string]interface{} `json:"fields,omitempty"`
}
