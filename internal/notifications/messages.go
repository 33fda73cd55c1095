package notifications

import "fmt"

// Common outcome messages shown as toasts.
const (
	MsgLoadFailed      = "Errore nel caricamento dei dati"
	MsgUnexpected      = "Si è verificato un errore imprevisto"
	MsgScanStarted     = "Scansione avviata"
	MsgScanRetried     = "Scansione rimessa in coda"
	MsgScanCancelled   = "Scansione annullata"
	MsgScanDeleted     = "Scansione eliminata"
	MsgScheduleCreated = "Pianificazione creata"
	MsgScheduleUpdated = "Pianificazione aggiornata"
	MsgScheduleDeleted = "Pianificazione eliminata"
	MsgReportFailed    = "Impossibile scaricare il report"
	MsgSchedulePaused  = "Pianificazione sospesa"
	MsgScheduleResumed = "Pianificazione riattivata"
	MsgScheduleRun     = "Esecuzione pianificazione avviata"
	MsgSchedulerOn     = "Scheduler avviato"
	MsgSchedulerOff    = "Scheduler fermato"
	MsgInvalidForm     = "Controlla i campi evidenziati"
	MsgInvalidJSON     = "Le regole di escalation non sono un JSON valido"
)

// Created returns the toast text for a newly created entity, e.g. "Cliente creato".
func Created(entity string) string { return fmt.Sprintf("%s creato", entity) }

// Updated returns the toast text for an updated entity.
func Updated(entity string) string { return fmt.Sprintf("%s aggiornato", entity) }

// Removed returns the toast text for a deleted entity.
func Removed(entity string) string { return fmt.Sprintf("%s eliminato", entity) }

// Purged reports how many queued scans were dropped.
func Purged(n int) string {
	if n == 1 {
		return "1 scansione rimossa dalla coda"
	}
	return fmt.Sprintf("%d scansioni rimosse dalla coda", n)
}

// Failed prefixes an action failure with its cause.
func Failed(action string, err error) string {
	return fmt.Sprintf("Errore durante %s: %v", action, err)
}
