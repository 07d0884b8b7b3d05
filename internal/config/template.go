package config

import "fmt"

// DefaultTemplate returns a commented config file showing the values Load
// would use.
func DefaultTemplate() string {
	d := Load()
	return fmt.Sprintf(`# tempo configuration
# Uncomment a value to enable it. Values here override the environment;
# CLI flags override both.

[engine]
# gap-minutes = %d        # Silence that starts a new session
# bands = %q           # "three" (10s/30s) or "four" (10s/30s/60s)
# scope = %q    # "conversation" or "session"
# workers = %d             # Conversations processed in parallel
# timezone = %q          # Zone used for dates and day boundaries
# naive-local = false     # Read timestamps without offset as local time
# log-level = "info"

[source]
# kind = "firestore"      # "firestore" or "jsonl"
# project = ""
# root-collection = %q
# root-doc = %q
# jsonl-dir = ""

[exclusion]
# file = ""               # One identity per line or comma separated
# parameter = ""          # SSM parameter holding the list
# region = ""
# ids = ["0", "42"]

[output]
# dir = ""                # Write pairs.csv, daily.csv and customers.csv here
# sqlite = %q

[server]
# port = %d
# run-timeout = %q
`,
		d.GapMinutes,
		d.Bands,
		d.Scope,
		d.Workers,
		d.Timezone,
		d.RootCollection,
		d.RootDoc,
		DefaultDBPath(),
		d.Port,
		d.RunTimeout.String(),
	)
}
