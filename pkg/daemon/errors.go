package daemon

import (
	"fmt"

	ditcerr "github.com/kooba/ditc-deployer/pkg/errors"
	"github.com/kooba/ditc-deployer/pkg/job"
)

func unknownJobError(id job.ID) error {
	return &ditcerr.Error{
		Type: ditcerr.Missing,
		Err:  fmt.Errorf("unknown job %q", string(id)),
		Help: `Job not found

Only the status of recent jobs is kept, and none of it survives a
restart of the deployer. If the job was submitted a long time ago, or
before the deployer restarted, look in the deployer's logs for its ID.
`,
	}
}
