// Package influxdb writes pmdesk operational and delivery metrics to
// InfluxDB.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, batched non-blocking writes and health monitoring. Three
// measurements are written:
//
//	http_requests   method, route and status tags; duration_ms field
//	time_entries    project and user tags; hours and billable fields at the work date
//	budget          project tag; planned, actual, labour and EVM fields
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteTimeEntry("prj-1", "usr-1", workDate, 7.5, true)
//
// InfluxDB is optional. Connect returns ErrDisabled when it is switched off
// and callers carry on without metrics.
package influxdb
