// Command tenantfs operates on tenant file trees from the command line.
//
// Tenant roots come from a tenants file (YAML or TOML) when TENANTS_FILE or
// --tenants-file is set, otherwise from <volumes dir>/<tenant id>.
//
// Usage:
//
//	tenantfs --tenant srv-A ls plugins
//	tenantfs --tenant srv-A cat server.properties
//	echo "motd=hi" | tenantfs --tenant srv-A write server.properties
//	tenantfs --tenant srv-A mkdir backups
//	tenantfs --tenant srv-A touch whitelist.json
//	tenantfs --tenant srv-A rm logs
//	tenantfs --tenant srv-A mv world backups/world
//	tenantfs --tenant srv-A find config
//	tenantfs --tenant srv-A glob '**/*.yml'
//	tenantfs --tenant srv-A du
//	tenantfs --tenant srv-A upload ./backup.zip backups/backup.zip --extract
//	tenantfs --tenant srv-A sweep backups --older-than 1h
//
// Results are printed as JSON on stdout; logs go to stderr.
package main
