// Package events carries the session-completed event from the study session
// to whatever wants to react to it, such as review reminders.
//
// Sessions emit events without knowing which handlers will process them:
// - SessionCompletedEvent: cards due again and cards mastered by the session
// - EventHandler: interface for components that handle events
// - EventEmitter: interface for components that emit events
package events
