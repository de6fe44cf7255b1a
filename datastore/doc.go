// Package datastore manages the connection a grid dialect runs on.
//
// A Connection starts unopened, becomes open once its Config validates and a
// DynamoDB client has been built, and ends closed:
//
//	cfg, err := datastore.LoadConfig("grid.yaml")
//	if err != nil {
//	    return err
//	}
//	conn, err := datastore.Open(ctx, cfg, logger)
//	if err != nil {
//	    return err
//	}
//	defer conn.Close()
//
//	d, err := conn.Dialect(dynamo.DefaultConfig())
//
// A config file holds the flat properties database, host, port, user and
// password, optionally prefixed with "grid.dynamodb.". All five are
// required; a partial set leaves the connection unopened.
package datastore
