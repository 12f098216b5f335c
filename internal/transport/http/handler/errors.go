package handler

const (
	errInternalServer     = "Internal server error"
	errEmailTaken         = "Email is already registered"
	errInvalidCredentials = "Invalid email or password"
	errAlreadyVerified    = "Account is already verified"
	errOTPExpired         = "OTP has expired"
	errOTPInvalid         = "Invalid OTP"
	errUserNotFound       = "User not found"
)
