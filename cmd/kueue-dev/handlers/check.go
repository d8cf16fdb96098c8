package handlers

import (
	"fmt"

	"github.com/kueue-contrib/kueue-dev/internal/prereqs"
	"github.com/kueue-contrib/kueue-dev/internal/ui"
)

var checkAll = prereqs.CheckAll

// Check verifies the host tools and reports what was found. The bundle flag
// adds operator-sdk to the required set.
func Check(bundle bool) error {
	required := prereqs.Common()
	if bundle {
		required = append(required, prereqs.OperatorSDK())
	}

	found, err := checkAll(required)
	for _, name := range found {
		fmt.Printf("%s %s\n", ui.Success("ok"), name)
	}
	if err != nil {
		return err
	}
	fmt.Println(ui.Success("All prerequisites found"))
	return nil
}
