package migsql_test

import (
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// cmpSQL compares SQL payloads treating nil and empty parameter lists alike.
var cmpSQL = cmp.Options{
	cmpopts.EquateEmpty(),
}
