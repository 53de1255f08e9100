/*
 * This file is part of Anomos.
 *
 * Anomos is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * Anomos is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with Anomos.  If not, see <http://www.gnu.org/licenses/>.
 */

package server

import (
	"net"
	"strings"

	"github.com/valyala/fasthttp"

	"github.com/lingyu0w0/Anomos/config"
)

// isLocalIP replaces the original tracker's manual RFC1918/loopback octet
// checks (net.IP didn't exist when that code was written) with the stdlib
// classifier methods.
func isLocalIP(ip net.IP) bool {
	return ip == nil || ip.IsUnspecified() || ip.IsLoopback() ||
		ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast()
}

func firstNonLocal(commaList string) (string, bool) {
	for _, part := range strings.Split(commaList, ",") {
		candidate := strings.TrimSpace(part)

		ip := net.ParseIP(candidate)
		if ip != nil && !isLocalIP(ip) {
			return candidate, true
		}
	}

	return "", false
}

// resolveForwardedIP applies the original tracker's header precedence --
// X-Forwarded-For (first non-local element), then Client-IP, Via, From --
// honoring the only_local_override_ip trust policy.
func resolveForwardedIP(ctx *fasthttp.RequestCtx, trust config.ForwardedIPTrust) (string, bool) {
	if trust == config.ForwardedIPNever {
		return "", false
	}

	if trust == config.ForwardedIPWhenLocal {
		remoteIP, ok := socketIP(ctx)
		if !ok || !isLocalIP(net.ParseIP(remoteIP)) {
			return "", false
		}
	}

	if xff := string(ctx.Request.Header.Peek("X-Forwarded-For")); xff != "" {
		if ip, ok := firstNonLocal(xff); ok {
			return ip, true
		}
	}

	for _, header := range []string{"Client-IP", "Via", "From"} {
		if v := strings.TrimSpace(string(ctx.Request.Header.Peek(header))); v != "" {
			if net.ParseIP(v) != nil {
				return v, true
			}
		}
	}

	return "", false
}

// socketIP returns the TCP connection's remote address, ignoring port.
func socketIP(ctx *fasthttp.RequestCtx) (string, bool) {
	tcpAddr, ok := ctx.RemoteAddr().(*net.TCPAddr)
	if !ok {
		return "", false
	}

	return tcpAddr.IP.String(), true
}
