/*
 *
 * Copyright 2017 gRPC authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 */

package grpcore

import "strings"

// Target is a dial target split into its scheme, authority and endpoint
// components. Multi-scheme name resolution (DNS, etcd, consul, ...) is out
// of scope for this module — Endpoint is the single host:port this
// ClientConnManager actually dials — so Target exists only to recognize and
// strip a "scheme://authority/" prefix a caller's dial string may still
// carry, rather than to drive resolver selection.
type Target struct {
	Scheme    string
	Authority string
	Endpoint  string
}

// split2 returns the values from strings.SplitN(s, sep, 2).
// If sep is not found, it returns ("", "", false) instead.
func split2(s, sep string) (string, string, bool) {
	spl := strings.SplitN(s, sep, 2)
	if len(spl) < 2 {
		return "", "", false
	}
	return spl[0], spl[1], true
}

// parseTarget splits target into a Target. If target is not of the form
// scheme://authority/endpoint, it returns Target{Endpoint: target}.
func parseTarget(target string) (ret Target) {
	var ok bool
	ret.Scheme, ret.Endpoint, ok = split2(target, "://")
	if !ok {
		return Target{Endpoint: target}
	}
	ret.Authority, ret.Endpoint, ok = split2(ret.Endpoint, "/")
	if !ok {
		return Target{Endpoint: target}
	}
	return ret
}
