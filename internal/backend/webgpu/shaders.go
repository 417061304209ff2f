package webgpu

import (
	"fmt"
	"strings"

	"github.com/born-ml/devparity/internal/tensor"
)

// workgroupSize is the default number of threads per workgroup.
const workgroupSize = 256

// maxWorkgroupsPerDim is the WebGPU default limit for one dispatch axis.
const maxWorkgroupsPerDim = 65535

// Every kernel flattens a 2D dispatch into one linear index so that large
// tensors can exceed maxWorkgroupsPerDim workgroups.
const entryPoint = `
@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) gid: vec3<u32>, @builtin(num_workgroups) nwg: vec3<u32>) {
    let idx = gid.x + gid.y * nwg.x * 256u;
`

func render(code string, vars ...string) string {
	return strings.NewReplacer(vars...).Replace(code)
}

func zeroOf(ty string) string {
	switch ty {
	case "f32":
		return "0.0"
	case "i32":
		return "0i"
	default:
		return "0u"
	}
}

// binaryShader computes result = a OP b. Widened uint8 results are masked
// back to 8 bits.
func binaryShader(op, ty string, mask8 bool) string {
	expr := "a[idx] " + op + " b[idx]"
	if mask8 {
		expr = "(" + expr + ") & 0xFFu"
	}
	return render(`
@group(0) @binding(0) var<storage, read> a: array<{{T}}>;
@group(0) @binding(1) var<storage, read> b: array<{{T}}>;
@group(0) @binding(2) var<storage, read_write> result: array<{{T}}>;

struct Params {
    size: u32,
}
@group(0) @binding(3) var<uniform> params: Params;
`+entryPoint+`
    if (idx < params.size) {
        result[idx] = {{EXPR}};
    }
}
`, "{{T}}", ty, "{{EXPR}}", expr)
}

// equalShader writes 1u where a == b.
func equalShader(ty string) string {
	return render(`
@group(0) @binding(0) var<storage, read> a: array<{{T}}>;
@group(0) @binding(1) var<storage, read> b: array<{{T}}>;
@group(0) @binding(2) var<storage, read_write> result: array<u32>;

struct Params {
    size: u32,
}
@group(0) @binding(3) var<uniform> params: Params;
`+entryPoint+`
    if (idx < params.size) {
        result[idx] = select(0u, 1u, a[idx] == b[idx]);
    }
}
`, "{{T}}", ty)
}

// whereShader selects raw words, so one kernel serves every dtype.
const whereShader = `
@group(0) @binding(0) var<storage, read> condition: array<u32>;
@group(0) @binding(1) var<storage, read> x: array<u32>;
@group(0) @binding(2) var<storage, read> y: array<u32>;
@group(0) @binding(3) var<storage, read_write> result: array<u32>;

struct Params {
    size: u32,
}
@group(0) @binding(4) var<uniform> params: Params;
` + entryPoint + `
    if (idx < params.size) {
        result[idx] = select(y[idx], x[idx], condition[idx] != 0u);
    }
}
`

// remainderShader computes a floored remainder with the sign of the divisor.
// Integer inputs are promoted to i32; uint8 results are masked to 8 bits.
func remainderShader(dtype tensor.DataType) (string, error) {
	var load, divisor, store, zero string
	switch dtype {
	case tensor.Float32:
		load, divisor, store, zero = "a[idx]", "f32", "r", "0.0"
	case tensor.Int32:
		load, divisor, store, zero = "a[idx]", "i32", "r", "0i"
	case tensor.Uint8:
		load, divisor, store, zero = "i32(a[idx])", "i32", "bitcast<u32>(r) & 0xFFu", "0i"
	default:
		return "", fmt.Errorf("webgpu: remainder does not support %s", dtype)
	}
	ty, _ := wordType(dtype)
	return render(`
@group(0) @binding(0) var<storage, read> a: array<{{T}}>;
@group(0) @binding(1) var<storage, read_write> result: array<{{T}}>;

struct Params {
    size: u32,
    divisor: {{D}},
}
@group(0) @binding(2) var<uniform> params: Params;
`+entryPoint+`
    if (idx >= params.size) {
        return;
    }
    let d = params.divisor;
    var r = {{LOAD}} % d;
    if (r != {{ZERO}} && ((r < {{ZERO}}) != (d < {{ZERO}}))) {
        r = r + d;
    }
    result[idx] = {{STORE}};
}
`, "{{T}}", ty, "{{D}}", divisor, "{{LOAD}}", load, "{{STORE}}", store, "{{ZERO}}", zero), nil
}

// wrapI32 truncates toward zero and wraps modulo 2^32. WGSL's i32(f32)
// saturates instead. Magnitudes of 2^31 and above are multiples of 256, so
// the modulo arithmetic is exact in f32.
const wrapI32 = `
fn wrap_i32(v: f32) -> i32 {
    let t = trunc(v);
    if (abs(t) < 2147483648.0) {
        return i32(t);
    }
    return bitcast<i32>(u32(t - 4294967296.0 * floor(t / 4294967296.0)));
}
`

// castShader converts between word encodings. Float to integer truncates
// toward zero and wraps like a two's complement store; uint8 targets keep
// the low 8 bits.
func castShader(from, to tensor.DataType) (string, error) {
	src, err := wordType(from)
	if err != nil {
		return "", err
	}
	dst, err := wordType(to)
	if err != nil {
		return "", err
	}
	toInt, prelude := "i32(v)", ""
	if src == "f32" {
		toInt, prelude = "wrap_i32(v)", wrapI32
	}
	var expr string
	switch to {
	case tensor.Float32:
		expr = "f32(v)"
	case tensor.Int32:
		expr = toInt
	case tensor.Uint8:
		if src == "u32" {
			expr = "v & 0xFFu"
		} else {
			expr = "bitcast<u32>(" + toInt + ") & 0xFFu"
		}
	case tensor.Bool:
		expr = "select(0u, 1u, v != " + zeroOf(src) + ")"
	}
	return render(`
@group(0) @binding(0) var<storage, read> a: array<{{S}}>;
@group(0) @binding(1) var<storage, read_write> result: array<{{D}}>;

struct Params {
    size: u32,
}
@group(0) @binding(2) var<uniform> params: Params;
`+prelude+entryPoint+`
    if (idx < params.size) {
        let v = a[idx];
        result[idx] = {{EXPR}};
    }
}
`, "{{S}}", src, "{{D}}", dst, "{{EXPR}}", expr), nil
}

// allShader clears flag when any element is zero. flag starts at 1.
func allShader(ty string) string {
	return render(`
@group(0) @binding(0) var<storage, read> a: array<{{T}}>;
@group(0) @binding(1) var<storage, read_write> flag: atomic<u32>;

struct Params {
    size: u32,
}
@group(0) @binding(2) var<uniform> params: Params;
`+entryPoint+`
    if (idx < params.size && a[idx] == {{ZERO}}) {
        atomicStore(&flag, 0u);
    }
}
`, "{{T}}", ty, "{{ZERO}}", zeroOf(ty))
}

// allDimShader reduces a [outer, size, inner] view along the middle axis.
// One invocation per output element.
func allDimShader(ty string) string {
	return render(`
@group(0) @binding(0) var<storage, read> a: array<{{T}}>;
@group(0) @binding(1) var<storage, read_write> result: array<u32>;

struct Params {
    count: u32,
    size: u32,
    inner: u32,
}
@group(0) @binding(2) var<uniform> params: Params;
`+entryPoint+`
    if (idx >= params.count) {
        return;
    }
    let o = idx / params.inner;
    let i = idx % params.inner;
    let base = o * params.size * params.inner + i;
    var ok = 1u;
    for (var k = 0u; k < params.size; k = k + 1u) {
        if (a[base + k * params.inner] == {{ZERO}}) {
            ok = 0u;
            break;
        }
    }
    result[idx] = ok;
}
`, "{{T}}", ty, "{{ZERO}}", zeroOf(ty))
}

// eluShader applies the exponential linear unit.
const eluShader = `
@group(0) @binding(0) var<storage, read> x: array<f32>;
@group(0) @binding(1) var<storage, read_write> result: array<f32>;

struct Params {
    size: u32,
    alpha: f32,
    scale: f32,
    input_scale: f32,
}
@group(0) @binding(2) var<uniform> params: Params;
` + entryPoint + `
    if (idx >= params.size) {
        return;
    }
    let v = x[idx];
    if (v > 0.0) {
        result[idx] = v * params.scale;
    } else {
        result[idx] = (exp(v * params.input_scale) - 1.0) * params.alpha * params.scale;
    }
}
`

// eluBackwardShader computes the ELU gradient from the forward output.
const eluBackwardShader = `
@group(0) @binding(0) var<storage, read> grad: array<f32>;
@group(0) @binding(1) var<storage, read> output: array<f32>;
@group(0) @binding(2) var<storage, read_write> result: array<f32>;

struct Params {
    size: u32,
    alpha: f32,
    scale: f32,
    input_scale: f32,
}
@group(0) @binding(3) var<uniform> params: Params;
` + entryPoint + `
    if (idx >= params.size) {
        return;
    }
    let y = output[idx];
    if (y > 0.0) {
        result[idx] = grad[idx] * params.scale;
    } else {
        result[idx] = grad[idx] * params.input_scale * (y + params.alpha * params.scale);
    }
}
`

// interpolateShader evaluates trilinear taps on a [planes, D, H, W] view.
// Linear and bilinear inputs arrive with identity taps on the missing axes.
const interpolateShader = `
struct Tap {
    i0: u32,
    i1: u32,
    l0: f32,
    l1: f32,
}

@group(0) @binding(0) var<storage, read> input: array<f32>;
@group(0) @binding(1) var<storage, read_write> result: array<f32>;
@group(0) @binding(2) var<storage, read> taps: array<Tap>;

struct Params {
    size: u32,
    in_d: u32,
    in_h: u32,
    in_w: u32,
    out_d: u32,
    out_h: u32,
    out_w: u32,
    off_d: u32,
    off_h: u32,
    off_w: u32,
}
@group(0) @binding(3) var<uniform> params: Params;

fn at(base: u32, d: u32, h: u32, w: u32) -> f32 {
    return input[base + (d * params.in_h + h) * params.in_w + w];
}
` + entryPoint + `
    if (idx >= params.size) {
        return;
    }
    let ow = idx % params.out_w;
    var r = idx / params.out_w;
    let oh = r % params.out_h;
    r = r / params.out_h;
    let od = r % params.out_d;
    let p = r / params.out_d;

    let td = taps[params.off_d + od];
    let th = taps[params.off_h + oh];
    let tw = taps[params.off_w + ow];
    let base = p * params.in_d * params.in_h * params.in_w;

    let d0 = th.l0 * (tw.l0 * at(base, td.i0, th.i0, tw.i0) + tw.l1 * at(base, td.i0, th.i0, tw.i1))
           + th.l1 * (tw.l0 * at(base, td.i0, th.i1, tw.i0) + tw.l1 * at(base, td.i0, th.i1, tw.i1));
    let d1 = th.l0 * (tw.l0 * at(base, td.i1, th.i0, tw.i0) + tw.l1 * at(base, td.i1, th.i0, tw.i1))
           + th.l1 * (tw.l0 * at(base, td.i1, th.i1, tw.i0) + tw.l1 * at(base, td.i1, th.i1, tw.i1));
    result[idx] = td.l0 * d0 + td.l1 * d1;
}
`

// interpolateBackwardShader gathers, for each input element, the weighted
// output gradients that read it. No two invocations write the same element.
const interpolateBackwardShader = `
struct Tap {
    i0: u32,
    i1: u32,
    l0: f32,
    l1: f32,
}

struct Range {
    start: u32,
    end: u32,
}

@group(0) @binding(0) var<storage, read> grad: array<f32>;
@group(0) @binding(1) var<storage, read_write> result: array<f32>;
@group(0) @binding(2) var<storage, read> taps: array<Tap>;
@group(0) @binding(3) var<storage, read> ranges: array<Range>;

struct Params {
    size: u32,
    in_d: u32,
    in_h: u32,
    in_w: u32,
    out_d: u32,
    out_h: u32,
    out_w: u32,
    off_d: u32,
    off_h: u32,
    off_w: u32,
    roff_d: u32,
    roff_h: u32,
    roff_w: u32,
}
@group(0) @binding(4) var<uniform> params: Params;

fn weight(t: Tap, i: u32) -> f32 {
    var w = 0.0;
    if (t.i0 == i) {
        w = w + t.l0;
    }
    if (t.i1 == i) {
        w = w + t.l1;
    }
    return w;
}
` + entryPoint + `
    if (idx >= params.size) {
        return;
    }
    let iw = idx % params.in_w;
    var r = idx / params.in_w;
    let ih = r % params.in_h;
    r = r / params.in_h;
    let id = r % params.in_d;
    let p = r / params.in_d;

    let rd = ranges[params.roff_d + id];
    let rh = ranges[params.roff_h + ih];
    let rw = ranges[params.roff_w + iw];
    let base = p * params.out_d * params.out_h * params.out_w;

    var acc = 0.0;
    for (var od = rd.start; od < rd.end; od = od + 1u) {
        let wd = weight(taps[params.off_d + od], id);
        for (var oh = rh.start; oh < rh.end; oh = oh + 1u) {
            let wh = wd * weight(taps[params.off_h + oh], ih);
            let row = base + (od * params.out_h + oh) * params.out_w;
            for (var ow = rw.start; ow < rw.end; ow = ow + 1u) {
                acc = acc + wh * weight(taps[params.off_w + ow], iw) * grad[row + ow];
            }
        }
    }
    result[idx] = acc;
}
`

// batchMatMulShader computes C[b] = A[b] @ B[b] for A [batch, M, K] and
// B [batch, K, N], one output element per invocation.
func batchMatMulShader(ty string) string {
	return render(`
@group(0) @binding(0) var<storage, read> a: array<{{T}}>;
@group(0) @binding(1) var<storage, read> b: array<{{T}}>;
@group(0) @binding(2) var<storage, read_write> result: array<{{T}}>;

struct Params {
    size: u32,
    M: u32,
    K: u32,
    N: u32,
}
@group(0) @binding(3) var<uniform> params: Params;
`+entryPoint+`
    if (idx >= params.size) {
        return;
    }
    let col = idx % params.N;
    let row = (idx / params.N) % params.M;
    let batch_idx = idx / (params.M * params.N);

    let a_offset = (batch_idx * params.M + row) * params.K;
    let b_offset = batch_idx * params.K * params.N + col;

    var sum = {{ZERO}};
    for (var k = 0u; k < params.K; k = k + 1u) {
        sum = sum + a[a_offset + k] * b[b_offset + k * params.N];
    }
    result[idx] = sum;
}
`, "{{T}}", ty, "{{ZERO}}", zeroOf(ty))
}

// gatherShader copies a strided source word to word idx of the output.
// dims holds ndim, then the output strides, then the source strides. Words are moved untouched, so one kernel serves every dtype.
const gatherShader = `
@group(0) @binding(0) var<storage, read> input: array<u32>;
@group(0) @binding(1) var<storage, read_write> result: array<u32>;
@group(0) @binding(2) var<storage, read> dims: array<u32>;

struct Params {
    size: u32,
}
@group(0) @binding(3) var<uniform> params: Params;
` + entryPoint + `
    if (idx >= params.size) {
        return;
    }
    let ndim = dims[0];
    var rem = idx;
    var src = 0u;
    for (var d = 0u; d < ndim; d = d + 1u) {
        let stride = dims[1u + d];
        src = src + (rem / stride) * dims[1u + ndim + d];
        rem = rem % stride;
    }
    result[idx] = input[src];
}
`

// sumDimShader sums a [outer, size, inner] view along the middle axis.
func sumDimShader(ty string) string {
	return render(`
@group(0) @binding(0) var<storage, read> a: array<{{T}}>;
@group(0) @binding(1) var<storage, read_write> result: array<{{T}}>;

struct Params {
    count: u32,
    size: u32,
    inner: u32,
}
@group(0) @binding(2) var<uniform> params: Params;
`+entryPoint+`
    if (idx >= params.count) {
        return;
    }
    let o = idx / params.inner;
    let i = idx % params.inner;
    let base = o * params.size * params.inner + i;
    var sum = {{ZERO}};
    for (var k = 0u; k < params.size; k = k + 1u) {
        sum = sum + a[base + k * params.inner];
    }
    result[idx] = sum;
}
`, "{{T}}", ty, "{{ZERO}}", zeroOf(ty))
}

// mulScalarShader scales every element.
const mulScalarShader = `
@group(0) @binding(0) var<storage, read> x: array<f32>;
@group(0) @binding(1) var<storage, read_write> result: array<f32>;

struct Params {
    size: u32,
    scalar: f32,
}
@group(0) @binding(2) var<uniform> params: Params;
` + entryPoint + `
    if (idx < params.size) {
        result[idx] = x[idx] * params.scalar;
    }
}
`

// repeatInterleaveShader writes, for output position idx, the first input
// index whose inclusive running sum exceeds idx.
const repeatInterleaveShader = `
@group(0) @binding(0) var<storage, read_write> result: array<i32>;
@group(0) @binding(1) var<storage, read> ends: array<u32>;

struct Params {
    size: u32,
    n: u32,
}
@group(0) @binding(2) var<uniform> params: Params;
` + entryPoint + `
    if (idx >= params.size) {
        return;
    }
    var lo = 0u;
    var hi = params.n;
    while (lo < hi) {
        let mid = (lo + hi) / 2u;
        if (ends[mid] > idx) {
            hi = mid;
        } else {
            lo = mid + 1u;
        }
    }
    result[idx] = i32(lo);
}
`

// dispatchSize splits n invocations into a 2D workgroup grid.
func dispatchSize(n int) (x, y uint32) {
	groups := (n + workgroupSize - 1) / workgroupSize
	if groups <= maxWorkgroupsPerDim {
		return uint32(groups), 1 //nolint:gosec // G115: bounded by maxWorkgroupsPerDim
	}
	rows := (groups + maxWorkgroupsPerDim - 1) / maxWorkgroupsPerDim
	return maxWorkgroupsPerDim, uint32(rows) //nolint:gosec // G115: rows < 2^32 for any addressable tensor
}
