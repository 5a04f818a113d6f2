package obs

import (
	"encoding/json"
	"log"
	"os"
	"sync"
)

var (
	once sync.Once
	std  *log.Logger
)

// Logger returns the process-wide logger. Every consumer writes one JSON
// object per line to stdout; prefixes and flags stay off so the lines remain
// machine-parseable for log shipping.
func Logger() *log.Logger {
	once.Do(func() {
		std = log.New(os.Stdout, "", 0)
	})
	return std
}

// LogRequest serializes the fields into a single JSON log line. Despite the
// name it also carries operational records raised off the request path, such
// as audit append failures.
func LogRequest(fields map[string]any) {
	line, err := json.Marshal(fields)
	if err != nil {
		Logger().Printf(`{"level":"error","msg":"unserializable log fields","error":%q}`, err.Error())
		return
	}
	Logger().Println(string(line))
}
