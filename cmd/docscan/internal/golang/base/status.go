package base

import "strconv"

// StatusCode is the exit status of the program.
type StatusCode uint8

const (
	SNoError             StatusCode = iota // no error
	SGenericError                          // generic error
	SInvalidParameters                     // invalid parameters
	SHelpRequested                         // help requested
	SInitializationError                   // initialization error
	SApplicationError                      // application error
	SDecodeError                           // input image can not be decoded
	SCancelled                             // operation cancelled
)

var statusNames = [...]string{
	SNoError:             "NoError",
	SGenericError:        "GenericError",
	SInvalidParameters:   "InvalidParameters",
	SHelpRequested:       "HelpRequested",
	SInitializationError: "InitializationError",
	SApplicationError:    "ApplicationError",
	SDecodeError:         "DecodeError",
	SCancelled:           "Cancelled",
}

func (i StatusCode) String() string {
	if int(i) < len(statusNames) {
		return statusNames[i]
	}
	return "StatusCode(" + strconv.Itoa(int(i)) + ")"
}
