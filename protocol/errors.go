// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package protocol

import "github.com/momentics/wscore/api"

func protocolErr(msg string) error {
	return api.NewError(api.ErrKindProtocolError, msg)
}

var errShortHeader = protocolErr("short frame header")
