package errors

var (
	ErrInvalidInput = Validation("INVALID_INPUT", "invalid request")
	ErrUnauthorized = Unauthorized("UNAUTHORIZED", "unauthorized")
	ErrForbidden    = Forbidden("FORBIDDEN", "insufficient permissions")

	ErrBundleNotFound = NotFound("BUNDLE_NOT_FOUND", "credit bundle not found")
	ErrBundleInactive = Validation("BUNDLE_INACTIVE", "credit bundle is not available")
	ErrMissingRef     = Validation("MISSING_REFERENCE", "payment reference is required")

	ErrTransactionNotFound = NotFound("TRANSACTION_NOT_FOUND", "transaction not found")
	ErrTransactionFailed   = Validation("TRANSACTION_FAILED", "payment was not successful")
	ErrPaymentPending      = Validation("PAYMENT_PENDING", "payment has not been completed yet")
	ErrAmountMismatch      = Validation("AMOUNT_MISMATCH", "paid amount does not match the purchase")
	ErrGatewayUnavailable  = Upstream("GATEWAY_UNAVAILABLE", "payment provider is unavailable")
	ErrUnknownGateway      = Validation("UNKNOWN_GATEWAY", "unsupported payment gateway")
	ErrInvalidSignature    = Unauthorized("INVALID_SIGNATURE", "invalid webhook signature")

	ErrInsufficientCredits = Validation("INSUFFICIENT_CREDITS", "insufficient credits")
	ErrUserNotFound        = NotFound("USER_NOT_FOUND", "user not found")
)

var (
	ErrInterestNotFound  = NotFound("INTEREST_NOT_FOUND", "interest not found")
	ErrAlreadyUnlocked   = Validation("ALREADY_UNLOCKED", "interest is already unlocked")
	ErrNotPropertyOwner  = Forbidden("NOT_PROPERTY_OWNER", "you do not own this property")
	ErrDuplicateInterest = Conflict("DUPLICATE_INTEREST", "interest already registered for this property")
	ErrPropertyNotFound  = NotFound("PROPERTY_NOT_FOUND", "property not found")

	ErrNotificationNotFound = NotFound("NOTIFICATION_NOT_FOUND", "notification not found")

	ErrEmailTaken         = Conflict("EMAIL_TAKEN", "email is already registered")
	ErrInvalidCredentials = Unauthorized("INVALID_CREDENTIALS", "invalid credentials")
)
