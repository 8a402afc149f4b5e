// Package frontline is a client for the Plume Frontline partner API
// (https://partnersupport.plume.com/s/article/Plume-Portal-M2M-API-Credential-Generation).
//
// Authentication presents a static partner token to the m2m token endpoint
// and caches the returned JWT, refreshing it once half of its advertised
// lifetime has elapsed.
//
// The inventory is fetched on two cadences. Customers and locations change
// rarely and are fetched in full by RefreshMeta. Nodes are numerous, one
// request per location, so NodePoller walks the locations a few per
// refresh under a wall-clock budget and merges the results into the node
// store; only the very first poll fetches everything.
//
// Node records are annotated at fetch time with the owning customer's
// accountId, the customer and location ids, and upper-cased MAC addresses.
// The view helpers (LinkRows, ParentRows, SpeedTestRows, ChannelRows)
// flatten node sub-documents into derived models keyed by composite ids.
package frontline
