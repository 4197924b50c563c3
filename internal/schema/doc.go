// Package schema validates the JSON documents envscan emits and persists.
//
// Gate reports, evolution maps and correlation reports are checked before
// they are written so downstream consumers never see a malformed document.
// Thread indexes are checked when loaded so a hand-edited or truncated index
// is reported instead of silently reset.
package schema
