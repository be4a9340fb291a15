package logger

import (
	"encoding/json"
	"io"
	"log"
	"os"
)

type entry struct {
	Level  string         `json:"level"`
	Msg    string         `json:"msg"`
	Fields map[string]any `json:"fields,omitempty"`
}

func Init() {
	log.SetOutput(os.Stdout)
	log.SetFlags(0)
	write("INFO", "logger initialized", nil)
}

// SetOutput redirects log lines, mostly for tests.
func SetOutput(w io.Writer) {
	log.SetOutput(w)
	log.SetFlags(0)
}

func Info(msg string, fields map[string]any) {
	write("INFO", msg, fields)
}

func Warn(msg string, fields map[string]any) {
	write("WARN", msg, fields)
}

func Error(msg string, fields map[string]any) {
	write("ERROR", msg, fields)
}

func Fatal(msg string, fields map[string]any) {
	write("FATAL", msg, fields)
	os.Exit(1)
}

func write(level, msg string, fields map[string]any) {
	line, err := json.Marshal(entry{Level: level, Msg: msg, Fields: fields})
	if err != nil {
		// fields held something encoding/json rejects (func, chan, cycle)
		line, _ = json.Marshal(entry{Level: level, Msg: msg, Fields: map[string]any{
			"fields_error": err.Error(),
		}})
	}
	log.Print(string(line))
}
