package notification

import (
	"fmt"
	"sync"

	"github.com/trezcool/mpiangona/core/event"
)

// Toaster surfaces a notification as a transient message.
type Toaster interface {
	Toast(n Notification)
}

type ToasterFunc func(Notification)

func (f ToasterFunc) Toast(n Notification) { f(n) }

// Tables are the tables whose changes are notified.
var Tables = []string{
	event.TableMembers,
	event.TableContributions,
	event.TableGroups,
	event.TableSettings,
}

var tableSubjects = map[string]string{
	event.TableMembers:       "Adhérent",
	event.TableContributions: "Contribution",
	event.TableDues:          "Adidy",
	event.TableGroups:        "Groupe",
}

// FanOut turns change events into notifications. Every event yields exactly one notification.
type FanOut struct {
	center  *Center
	toaster Toaster

	mu  sync.Mutex
	sub *event.Subscription
}

func NewFanOut(center *Center, toaster Toaster) *FanOut {
	return &FanOut{center: center, toaster: toaster}
}

// Start subscribes to `bus`. Starting an already started FanOut does nothing.
func (f *FanOut) Start(bus *event.Bus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sub != nil && f.sub.Active() {
		return
	}
	f.sub = bus.Subscribe(event.Tables(Tables...), f.handle)
}

// Stop unsubscribes. It is safe to call it several times.
func (f *FanOut) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sub.Unsubscribe()
	f.sub = nil
}

func (f *FanOut) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sub.Active()
}

func (f *FanOut) handle(c event.Change) {
	typ, title, msg := Describe(c)
	n := f.center.Add(typ, title, msg)
	if f.toaster != nil {
		f.toaster.Toast(n)
	}
}

// Describe maps a change to the severity, title and message of its notification.
func Describe(c event.Change) (Type, string, string) {
	if c.Table == event.TableSettings {
		return Info, "Paramètres modifiés", "La configuration du système a été mise à jour."
	}

	subject, ok := tableSubjects[c.Table]
	if !ok {
		subject = c.Table
	}
	label := c.Label
	if label == "" {
		label = c.ID
	}

	switch c.Action {
	case event.Insert:
		return Success, subject + " ajouté", fmt.Sprintf("%s a été ajouté.", label)
	case event.Update:
		return Info, subject + " modifié", fmt.Sprintf("%s a été modifié.", label)
	case event.Delete:
		return Warning, subject + " supprimé", fmt.Sprintf("%s a été supprimé.", label)
	}
	return Info, subject, label
}
