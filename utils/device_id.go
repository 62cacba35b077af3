package utils

import "context"

type contextKey string

func (c contextKey) String() string {
	return "account/" + string(c)
}

const ctxKeyDevice = contextKey("deviceKey")

// DeviceIDToContext pushes a device id into the supplied context for easier propagation.
func DeviceIDToContext(ctx context.Context, deviceID string) context.Context {
	return context.WithValue(ctx, ctxKeyDevice, deviceID)
}

// DeviceIDFromContext obtains a device id being propagated through the context.
func DeviceIDFromContext(ctx context.Context) string {
	deviceID, ok := ctx.Value(ctxKeyDevice).(string)
	if !ok {
		return ""
	}

	return deviceID
}
