package systemservice

import (
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/disk"
	"github.com/shirou/gopsutil/host"
	"github.com/shirou/gopsutil/mem"
	"github.com/shirou/gopsutil/net"
	"go.uber.org/zap"
)

// Interface is one network interface with its rates since the previous sample, in KiB/s.
type Interface struct {
	Name       string  `json:"name"`
	BytesSent  uint64  `json:"bytesSent"`
	BytesRecv  uint64  `json:"bytesRecv"`
	ReadSpeed  float64 `json:"readSpeed"`
	WriteSpeed float64 `json:"writeSpeed"`
}

// Folder is a directory the server writes to and how much it holds.
type Folder struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	Files  int    `json:"files"`
	SizeMB uint64 `json:"sizeMb"`
	// FreeMB is what is left on the partition holding Path.
	FreeMB uint64 `json:"freeMb"`
}

type Metrics struct {
	OS          string      `json:"os"`
	Platform    string      `json:"platform"`
	Uptime      uint64      `json:"uptime"`
	CPUUsage    float64     `json:"cpuUsage"`
	TotalMemory uint64      `json:"totalMemory"`
	MemoryUsage uint64      `json:"memoryUsage"`
	Goroutines  int         `json:"goroutines"`
	Interfaces  []Interface `json:"interfaces"`
	Folders     []Folder    `json:"folders"`
	Profiles    int         `json:"profiles"`
}

// Collector samples the host. Network rates need the previous sample, so
// every connection keeps its own Collector.
type Collector struct {
	mu       sync.Mutex
	folders  map[string]string
	count    func() int
	logger   *zap.Logger
	prevNet  []net.IOCountersStat
	prevTime time.Time
}

// NewCollector watches folders (name to path) and reports count() as the profile total.
func NewCollector(folders map[string]string, count func() int, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{folders: folders, count: count, logger: logger}
}

// Collect takes one sample. Parts the host does not expose are left empty.
func (c *Collector) Collect() Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := Metrics{
		OS:         runtime.GOOS,
		Goroutines: runtime.NumGoroutine(),
		Interfaces: []Interface{},
		Folders:    []Folder{},
	}

	if info, err := host.Info(); err == nil {
		m.Platform = info.Platform + " " + info.PlatformVersion
		m.Uptime = info.Uptime
	} else {
		c.logger.Debug("Error reading host info", zap.Error(err))
	}

	if percent, err := cpu.Percent(0, false); err == nil && len(percent) > 0 {
		m.CPUUsage = percent[0]
	} else if err != nil {
		c.logger.Debug("Error reading CPU usage", zap.Error(err))
	}

	if memStats, err := mem.VirtualMemory(); err == nil {
		m.TotalMemory = memStats.Total / 1024 / 1024
		m.MemoryUsage = memStats.Used / 1024 / 1024
	} else {
		c.logger.Debug("Error reading memory", zap.Error(err))
	}

	m.Interfaces = c.interfaces()

	for name, path := range c.folders {
		m.Folders = append(m.Folders, folderUsage(name, path))
	}

	if c.count != nil {
		m.Profiles = c.count()
	}
	return m
}

func (c *Collector) interfaces() []Interface {
	netStats, err := net.IOCounters(true)
	if err != nil {
		c.logger.Debug("Error reading network stats", zap.Error(err))
		return []Interface{}
	}

	now := time.Now()
	elapsed := now.Sub(c.prevTime).Seconds()
	prev := make(map[string]net.IOCountersStat, len(c.prevNet))
	for _, s := range c.prevNet {
		prev[s.Name] = s
	}

	interfaces := make([]Interface, 0, len(netStats))
	for _, s := range netStats {
		iface := Interface{Name: s.Name, BytesSent: s.BytesSent, BytesRecv: s.BytesRecv}
		if p, ok := prev[s.Name]; ok && elapsed > 0 && s.BytesRecv >= p.BytesRecv && s.BytesSent >= p.BytesSent {
			iface.ReadSpeed = float64(s.BytesRecv-p.BytesRecv) / 1024.0 / elapsed
			iface.WriteSpeed = float64(s.BytesSent-p.BytesSent) / 1024.0 / elapsed
		}
		interfaces = append(interfaces, iface)
	}

	c.prevNet, c.prevTime = netStats, now
	return interfaces
}

func folderUsage(name, path string) Folder {
	folder := Folder{Name: name, Path: path}

	var size uint64
	filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			size += uint64(info.Size())
			folder.Files++
		}
		return nil
	})
	folder.SizeMB = size / 1024 / 1024

	usagePath := path
	if _, err := os.Stat(usagePath); err != nil {
		usagePath = filepath.Dir(path)
	}
	if usage, err := disk.Usage(usagePath); err == nil {
		folder.FreeMB = usage.Free / 1024 / 1024
	}
	return folder
}
