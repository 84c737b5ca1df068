// internal/tenants/provider.go
package tenants

import (
	"context"
	"fmt"

	"pushgw/internal/providers"
)

// ProviderClient builds the push client for one of this tenant's providers.
// Missing credentials surface as the matching credential-class error, never
// as a device-token problem.
func (t Tenant) ProviderClient(ctx context.Context, pt providers.PushType, env providers.ApnsEnvironment) (providers.PushProvider, error) {
	switch pt {
	case providers.TypeApns:
		if !t.SupportsApns() {
			return nil, fmt.Errorf("%w: tenant %s has no apns credentials", providers.ErrBadApnsCredentials, t.ID)
		}
		switch *t.ApnsType {
		case ApnsAuthCertificate:
			password := ""
			if t.ApnsCertificatePassword != nil {
				password = *t.ApnsCertificatePassword
			}
			return providers.NewApnsCertificateProvider(*t.ApnsCertificate, password, *t.ApnsTopic, env)
		case ApnsAuthToken:
			return providers.NewApnsTokenProvider(*t.ApnsPKCS8PEM, *t.ApnsKeyID, *t.ApnsTeamID, *t.ApnsTopic, env)
		}
		return nil, fmt.Errorf("%w: unknown apns auth variant", providers.ErrBadApnsCredentials)
	case providers.TypeFcm:
		if !t.SupportsFcm() {
			return nil, fmt.Errorf("%w: tenant %s has no fcm api key", providers.ErrBadFcmAPIKey, t.ID)
		}
		return providers.NewFcmProvider(*t.FcmAPIKey), nil
	case providers.TypeFcmV1:
		if !t.SupportsFcmV1() {
			return nil, fmt.Errorf("%w: tenant %s has no fcm v1 credentials", providers.ErrBadFcmV1Credentials, t.ID)
		}
		return providers.NewFcmV1Provider(ctx, *t.FcmV1Credentials)
	}
	return nil, fmt.Errorf("unsupported push provider %q", pt)
}
