package app

import (
	log "github.com/sirupsen/logrus"
	"github.com/zakgeld/moni/internal/event_bus"
)

func subscribeAuditLog(bus *event_bus.EventBus) {
	event_bus.SubscribeTyped(bus, event_bus.WeekConfirmedEvent, func(e event_bus.EventT[event_bus.WeekConfirmed]) error {
		entry := log.WithFields(log.Fields{
			"owner":   e.Data.Owner,
			"week":    e.Data.WeekId,
			"balance": e.Data.RunningBalance.StringFixed(2),
		})
		if e.Data.NegativeWeek {
			entry.Warn("week confirmed with expenses above income")
			return nil
		}
		entry.Info("week confirmed")
		return nil
	})
}
