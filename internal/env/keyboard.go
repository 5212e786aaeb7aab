package env

import (
	"log/slog"
	"sync"
	"time"
)

// KeyboardState описывает состояние экранной клавиатуры.
type KeyboardState string

const (
	KeyboardClosed KeyboardState = "closed"
	KeyboardOpen   KeyboardState = "open"
)

// Timer — отменяемый отложенный вызов.
type Timer interface {
	Stop() bool
}

// Scheduler откладывает вызовы. В тестах подменяется ручными часами.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// RealScheduler использует time.AfterFunc.
type RealScheduler struct{}

func (RealScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// KeyboardConfig содержит параметры детектора.
type KeyboardConfig struct {
	// Threshold — на сколько пикселей должна уменьшиться высота, чтобы считать клавиатуру открытой.
	Threshold int
	// Debounce — период тишины после последнего resize.
	Debounce time.Duration
	// OrientationSettle — задержка перед замером высоты после смены ориентации.
	OrientationSettle time.Duration
}

// KeyboardTracker определяет открытие экранной клавиатуры по уменьшению высоты
// видимой области относительно высоты, замеренной при старте.
type KeyboardTracker struct {
	cfg      KeyboardConfig
	measure  func() int
	sched    Scheduler
	onChange func(KeyboardState)
	logger   *slog.Logger

	mutex       sync.Mutex
	initial     int
	state       KeyboardState
	resize      Timer
	orientation Timer
}

// NewKeyboardTracker создает детектор. measure возвращает текущую высоту видимой области,
// onChange вызывается ровно один раз на каждый переход.
func NewKeyboardTracker(cfg KeyboardConfig, measure func() int, sched Scheduler, onChange func(KeyboardState), logger *slog.Logger) *KeyboardTracker {
	if sched == nil {
		sched = RealScheduler{}
	}
	return &KeyboardTracker{
		cfg:      cfg,
		measure:  measure,
		sched:    sched,
		onChange: onChange,
		logger:   logger,
		state:    KeyboardClosed,
	}
}

// Start запоминает исходную высоту.
func (k *KeyboardTracker) Start() {
	k.mutex.Lock()
	defer k.mutex.Unlock()

	k.initial = k.measure()
	k.state = KeyboardClosed
	k.logger.Debug("Исходная высота области просмотра", "height", k.initial)
}

// State возвращает текущее состояние.
func (k *KeyboardTracker) State() KeyboardState {
	k.mutex.Lock()
	defer k.mutex.Unlock()
	return k.state
}

// InitialHeight возвращает высоту, относительно которой определяется клавиатура.
func (k *KeyboardTracker) InitialHeight() int {
	k.mutex.Lock()
	defer k.mutex.Unlock()
	return k.initial
}

// Resize сообщает об изменении размера. Оценка выполняется после периода тишины.
func (k *KeyboardTracker) Resize() {
	k.mutex.Lock()
	defer k.mutex.Unlock()

	k.resize = reschedule(k.sched, k.resize, k.cfg.Debounce, k.evaluate)
}

// OrientationChange перезамеряет исходную высоту после задержки.
func (k *KeyboardTracker) OrientationChange() {
	k.mutex.Lock()
	defer k.mutex.Unlock()

	k.orientation = reschedule(k.sched, k.orientation, k.cfg.OrientationSettle, func() {
		k.mutex.Lock()
		k.orientation = nil
		k.initial = k.measure()
		k.logger.Debug("Высота перезамерена после смены ориентации", "height", k.initial)
		k.mutex.Unlock()
		k.evaluate()
	})
}

// Stop отменяет отложенную оценку.
func (k *KeyboardTracker) Stop() {
	k.mutex.Lock()
	defer k.mutex.Unlock()

	for _, t := range []Timer{k.resize, k.orientation} {
		if t != nil {
			t.Stop()
		}
	}
	k.resize, k.orientation = nil, nil
}

func reschedule(sched Scheduler, current Timer, d time.Duration, f func()) Timer {
	if current != nil {
		current.Stop()
	}
	return sched.AfterFunc(d, f)
}

func (k *KeyboardTracker) evaluate() {
	k.mutex.Lock()
	height := k.measure()
	next := KeyboardClosed
	if k.initial-height > k.cfg.Threshold {
		next = KeyboardOpen
	}
	changed := next != k.state
	k.state = next
	k.mutex.Unlock()

	if !changed {
		return
	}
	k.logger.Debug("Состояние клавиатуры изменилось", "state", next, "height", height)
	if k.onChange != nil {
		k.onChange(next)
	}
}
