package logsservice

import (
	"archive/zip"
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	logsstruct "github.com/Gamequic/ProfileDirectory/pkg/features/logsViewer/struct"
)

var (
	ErrLogNotFound   = errors.New("log file not found")
	ErrOutsideLogDir = errors.New("path is outside of the logs directory")
	ErrInvalidDate   = errors.New("date must be in the format YYYY-MM-DD")
)

// Viewer reads the files written by utils.NewLogger under root.
type Viewer struct {
	root string
}

func NewViewer(root string) *Viewer {
	return &Viewer{root: root}
}

// Tree lists the log directory, folders before files, as the admin page shows it.
func (v *Viewer) Tree() ([]logsstruct.TreeLogNode, error) {
	return buildTree(v.root, "")
}

func buildTree(basePath, parentID string) ([]logsstruct.TreeLogNode, error) {
	entries, err := os.ReadDir(basePath)
	if err != nil {
		return nil, err
	}

	nodes := []logsstruct.TreeLogNode{}
	for _, entry := range entries {
		node := logsstruct.TreeLogNode{
			ID:    filepath.ToSlash(filepath.Join(parentID, entry.Name())),
			Label: entry.Name(),
		}
		if entry.IsDir() {
			node.FileType = "folder"
			children, err := buildTree(filepath.Join(basePath, entry.Name()), node.ID)
			if err != nil {
				return nil, err
			}
			node.Children = children
		} else {
			node.FileType = fileType(entry.Name())
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func fileType(fileName string) string {
	if strings.ToLower(filepath.Ext(fileName)) == ".log" {
		return "doc"
	}
	return "file"
}

// DayPath is the log file for date (YYYY-MM-DD).
func (v *Viewer) DayPath(date string) (string, error) {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return "", ErrInvalidDate
	}
	path := filepath.Join(v.root, day.Format("2006"), day.Format("01"), date+".log")
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", ErrLogNotFound
		}
		return "", err
	}
	return path, nil
}

// Entries decodes the day's log, keeping only lines at or above minLevel when it is set.
// Lines that are not JSON are skipped.
func (v *Viewer) Entries(date, minLevel string) ([]logsstruct.LogEntry, error) {
	path, err := v.DayPath(date)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	threshold := levelRank(minLevel)
	entries := []logsstruct.LogEntry{}
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	for scanner.Scan() {
		var raw map[string]interface{}
		if err := json.Unmarshal(scanner.Bytes(), &raw); err != nil {
			continue
		}
		entry := logsstruct.LogEntry{
			Time:    popString(raw, "time"),
			Level:   popString(raw, "level"),
			Message: popString(raw, "msg"),
			Caller:  popString(raw, "caller"),
		}
		if levelRank(entry.Level) < threshold {
			continue
		}
		if len(raw) > 0 {
			entry.Fields = raw
		}
		entries = append(entries, entry)
	}
	return entries, scanner.Err()
}

func popString(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	delete(m, key)
	return s
}

func levelRank(level string) int {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return 0
	case "WARN":
		return 2
	case "ERROR":
		return 3
	case "DPANIC", "PANIC", "FATAL":
		return 4
	case "":
		return -1
	default:
		return 1
	}
}

// Resolve maps a path relative to the log directory to a real path inside it.
func (v *Viewer) Resolve(rel string) (string, os.FileInfo, error) {
	base, err := filepath.Abs(v.root)
	if err != nil {
		return "", nil, err
	}
	full, err := filepath.Abs(filepath.Join(base, filepath.FromSlash(rel)))
	if err != nil {
		return "", nil, err
	}
	if full != base && !strings.HasPrefix(full, base+string(filepath.Separator)) {
		return "", nil, ErrOutsideLogDir
	}

	info, err := os.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil, ErrLogNotFound
		}
		return "", nil, err
	}
	return full, info, nil
}

// ZipDir writes every file under dir into w.
func ZipDir(w io.Writer, dir string) error {
	zipWriter := zip.NewWriter(w)
	if err := addDirToZip(zipWriter, dir, ""); err != nil {
		zipWriter.Close()
		return err
	}
	return zipWriter.Close()
}

func addDirToZip(zipWriter *zip.Writer, dirPath, baseInZip string) error {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		fullPath := filepath.Join(dirPath, entry.Name())
		inZip := filepath.ToSlash(filepath.Join(baseInZip, entry.Name()))
		if entry.IsDir() {
			if err := addDirToZip(zipWriter, fullPath, inZip); err != nil {
				return err
			}
			continue
		}
		if err := addFileToZip(zipWriter, fullPath, inZip); err != nil {
			return err
		}
	}
	return nil
}

func addFileToZip(zipWriter *zip.Writer, fullPath, inZip string) error {
	file, err := os.Open(fullPath)
	if err != nil {
		return err
	}
	defer file.Close()

	zipFileWriter, err := zipWriter.Create(inZip)
	if err != nil {
		return err
	}
	_, err = io.Copy(zipFileWriter, file)
	return err
}
