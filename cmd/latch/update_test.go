package main

import "testing"

func TestBestTag(t *testing.T) {
	tests := []struct {
		name     string
		lsRemote string
		want     string
	}{
		{
			name: "version order beats string order",
			lsRemote: "aaa\trefs/tags/v4.9.1\n" +
				"bbb\trefs/tags/v4.10.0\n" +
				"ccc\trefs/tags/v4.2.0\n",
			want: "v4.10.0",
		},
		{
			name: "plain and v-prefixed tags mix",
			lsRemote: "aaa\trefs/tags/22.3.0\n" +
				"bbb\trefs/tags/19.10\n",
			want: "22.3.0",
		},
		{
			name:     "non-version tags ignored",
			lsRemote: "aaa\trefs/tags/latest\nbbb\trefs/tags/v1.0.0\n",
			want:     "v1.0.0",
		},
		{
			name:     "pre-release style tags ignored",
			lsRemote: "aaa\trefs/tags/v21.12b0\nbbb\trefs/tags/v21.11.0\n",
			want:     "v21.11.0",
		},
		{
			name:     "longer version wins over its prefix",
			lsRemote: "aaa\trefs/tags/v1.2\nbbb\trefs/tags/v1.2.1\n",
			want:     "v1.2.1",
		},
		{name: "no tags", lsRemote: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := bestTag(tt.lsRemote); got != tt.want {
				t.Errorf("bestTag() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestVersionLess(t *testing.T) {
	tests := []struct {
		a, b []int
		want bool
	}{
		{[]int{1, 2, 3}, []int{1, 2, 4}, true},
		{[]int{1, 2, 4}, []int{1, 2, 3}, false},
		{[]int{1, 2}, []int{1, 2, 1}, true},
		{[]int{1, 2}, []int{1, 2}, false},
		{[]int{2}, []int{10}, true},
	}

	for _, tt := range tests {
		if got := versionLess(tt.a, tt.b); got != tt.want {
			t.Errorf("versionLess(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
