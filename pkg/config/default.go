// Global database config.
package config

// Name of the database.
const DBName = "malhdb"

// Prompt printed by the REPL.
const Prompt = DBName + "> "

// The maximum number of pages a pager keeps buffered at once.
const MaxPagesInBuffer = 32

// Name of the operation journal kept in the data folder.
const JournalFileName = "malhdb.journal"

// GetPrompt returns the prompt if requested, else "".
func GetPrompt(flag bool) string {
	if flag {
		return Prompt
	}
	return ""
}
