/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package log

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

type LogLevel int

const (
	LogPrefix     = "[go-octaeeg] "
	ErrorPrefix   = "[error] "
	WarningPrefix = "[warn] "
	InfoPrefix    = "[info] "
	DebugPrefix   = "[debug] "
	HelpLevels    = "Must be one of: error, warning, info, debug."
)

const (
	ErrorLevel LogLevel = iota
	WarningLevel
	InfoLevel
	DebugLevel
)

var levelMapping = map[string]LogLevel{
	"error":   ErrorLevel,
	"warning": WarningLevel,
	"info":    InfoLevel,
	"debug":   DebugLevel,
}

type Logger struct {
	mu    sync.RWMutex
	level LogLevel
	*log.Logger
}

var logger = &Logger{
	level:  InfoLevel,
	Logger: log.New(os.Stderr, LogPrefix, log.LstdFlags|log.Lmicroseconds),
}

// ParseLevel converts a level name to LogLevel
func ParseLevel(strLevel string) (LogLevel, error) {
	level, ok := levelMapping[strings.ToLower(strLevel)]
	if !ok {
		return ErrorLevel, errors.New("Wrong log level. " + HelpLevels)
	}
	return level, nil
}

func SetLevel(strLevel string) error {
	level, err := ParseLevel(strLevel)
	if err != nil {
		return err
	}
	logger.mu.Lock()
	logger.level = level
	logger.mu.Unlock()
	return nil
}

// Init sets the output and the level of the package logger
func Init(out io.Writer, strLevel string) error {
	logger.SetOutput(out)
	return SetLevel(strLevel)
}

func enabled(level LogLevel) bool {
	logger.mu.RLock()
	defer logger.mu.RUnlock()
	return logger.level >= level
}

func Error(format string, v ...interface{}) {
	if enabled(ErrorLevel) {
		logger.Println(fmt.Sprintf(ErrorPrefix+format, v...))
	}
}

func Warning(format string, v ...interface{}) {
	if enabled(WarningLevel) {
		logger.Println(fmt.Sprintf(WarningPrefix+format, v...))
	}
}

func Info(format string, v ...interface{}) {
	if enabled(InfoLevel) {
		logger.Println(fmt.Sprintf(InfoPrefix+format, v...))
	}
}

func Debug(format string, v ...interface{}) {
	if enabled(DebugLevel) {
		logger.Println(fmt.Sprintf(DebugPrefix+format, v...))
	}
}

type LevelWriter struct {
	level LogLevel
	log   func(format string, v ...interface{})
}

// Writer returns an io.Writer which logs every write as one line at the
// given level. It also has Println so it can be used as a recovery logger.
func Writer(level LogLevel) *LevelWriter {
	w := &LevelWriter{level: level}
	switch level {
	case ErrorLevel:
		w.log = Error
	case WarningLevel:
		w.log = Warning
	case InfoLevel:
		w.log = Info
	default:
		w.log = Debug
	}
	return w
}

func (w *LevelWriter) Write(p []byte) (int, error) {
	w.log("%s", strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

func (w *LevelWriter) Println(v ...interface{}) {
	w.log("%s", strings.TrimRight(fmt.Sprintln(v...), "\n"))
}
