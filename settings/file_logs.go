package settings

import (
	"path"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// ChLogDuplicates receives one json line per duplicate record when LogPath is set, nil otherwise.
var ChLogDuplicates chan []byte

var fileLoggersDone sync.WaitGroup

// start a new rotating logger that routes through a channel for performance
func makeFileLogger(filename string) chan []byte {
	// lumberjack lets us rotate log files automatically
	log := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    20, // megabytes
		MaxBackups: 3,
		MaxAge:     28,    //days
		Compress:   false, // disabled by default
	}
	ch := make(chan []byte, 256)
	fileLoggersDone.Add(1)
	go func() {
		defer fileLoggersDone.Done()
		defer log.Close()
		var err error
		for line := range ch {
			if len(line) == 0 {
				continue
			}
			// ensure a newline in logged message
			combined := append(line, []byte("\n")...)
			_, err = log.Write(combined)
			if err != nil {
				Logger.Warn().Int("bytes", len(combined)).Str("file", filename).Msg("could not write duplicate log line to file")
			}
		}
	}()
	return ch
}

// OpenFileLoggers starts the file loggers if a log path is configured.
func OpenFileLoggers() {
	if Settings.LogPath == "" || ChLogDuplicates != nil {
		return
	}
	ChLogDuplicates = makeFileLogger(path.Join(Settings.LogPath, "duplicates.log"))
}

// CloseFileLoggers flushes and stops all file loggers.
func CloseFileLoggers() {
	if ChLogDuplicates == nil {
		return
	}
	close(ChLogDuplicates)
	ChLogDuplicates = nil
	fileLoggersDone.Wait()
}
