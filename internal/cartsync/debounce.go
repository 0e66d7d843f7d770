package cartsync

import (
	"sync"
	"time"
)

// Debouncer откладывает выполнение задач по ключу: новое Schedule для того же
// ключа отменяет ранее запланированную, но ещё не стартовавшую задачу.
type Debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	timers  map[string]*debounceEntry
	stopped bool
	wg      sync.WaitGroup
}

type debounceEntry struct {
	timer *time.Timer
}

// NewDebouncer создаёт Debouncer с фиксированной задержкой тишины.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{
		delay:  delay,
		timers: make(map[string]*debounceEntry),
	}
}

// Schedule планирует fn через delay. Возвращает true, если при этом была
// отменена ранее запланированная задача для key.
func (d *Debouncer) Schedule(key string, fn func()) (replaced bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return false
	}

	if prev, ok := d.timers[key]; ok && prev.timer.Stop() {
		replaced = true
		d.wg.Done()
	}

	entry := &debounceEntry{}
	d.wg.Add(1)
	entry.timer = time.AfterFunc(d.delay, func() {
		defer d.wg.Done()

		d.mu.Lock()
		// Задача могла быть заменена или отменена между срабатыванием таймера
		// и захватом блокировки.
		if d.timers[key] != entry {
			d.mu.Unlock()
			return
		}
		delete(d.timers, key)
		d.mu.Unlock()

		fn()
	})
	d.timers[key] = entry
	return replaced
}

// Cancel отменяет ожидающую задачу для key. Возвращает true, если задача
// была отменена до запуска.
func (d *Debouncer) Cancel(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	entry, ok := d.timers[key]
	if !ok {
		return false
	}
	delete(d.timers, key)
	if entry.timer.Stop() {
		d.wg.Done()
		return true
	}
	return false
}

// Pending сообщает, есть ли ожидающая задача для key.
func (d *Debouncer) Pending(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.timers[key]
	return ok
}

// Stop отменяет все ожидающие задачи и ждёт завершения уже стартовавших.
// После Stop новые задачи не планируются.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	d.stopped = true
	for key, entry := range d.timers {
		if entry.timer.Stop() {
			d.wg.Done()
		}
		delete(d.timers, key)
	}
	d.mu.Unlock()

	d.wg.Wait()
}
