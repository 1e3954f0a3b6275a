package rawlog

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

const FileName = "mqtt_data.jsonl"

type Entry struct {
	Timestamp string          `json:"timestamp"`
	Topic     string          `json:"topic"`
	Payload   json.RawMessage `json:"payload"`
}

// Log appends every received broker message as one JSON line. Payloads that
// are not JSON are stored as a JSON string.
type Log struct {
	mu  sync.Mutex
	out io.WriteCloser
}

func New(dir string) (*Log, error) {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, err
	}
	return NewWithWriter(&lumberjack.Logger{
		Filename:   filepath.Join(dir, FileName),
		MaxSize:    50, // megabytes
		MaxBackups: 10,
		MaxAge:     30, // days
		Compress:   true,
	}), nil
}

func NewWithWriter(out io.WriteCloser) *Log {
	return &Log{out: out}
}

func (l *Log) Append(topic string, payload []byte, receivedAt time.Time) error {
	entry := Entry{
		Timestamp: receivedAt.UTC().Format(time.RFC3339Nano),
		Topic:     topic,
		Payload:   encodePayload(payload),
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	_, err = l.out.Write(line)
	return err
}

func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.out.Close()
}

func encodePayload(payload []byte) json.RawMessage {
	var compacted bytes.Buffer
	if len(payload) > 0 && json.Compact(&compacted, payload) == nil {
		return compacted.Bytes()
	}
	quoted, _ := json.Marshal(string(payload))
	return quoted
}
