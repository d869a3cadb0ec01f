package contract

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/cubecore/chainops/internal/domain/errs"
	"github.com/cubecore/chainops/internal/domain/model"
)

// Argument values arrive JSON-decoded (strings, float64, bool). The ABI
// packer wants native go-ethereum types, so each value is coerced by
// its declared ABI type before packing.

func coerceArgs(params []model.TemplateParam, raw []any) ([]any, error) {
	out := make([]any, len(raw))
	for i, v := range raw {
		coerced, err := coerceArg(params[i].Type, v)
		if err != nil {
			return nil, errs.Validationf("arg %q: %v", params[i].Name, err)
		}
		out[i] = coerced
	}
	return out, nil
}

func coerceABIArgs(inputs abi.Arguments, raw []any) ([]any, error) {
	if len(raw) != len(inputs) {
		return nil, errs.Validationf("method takes %d args, got %d", len(inputs), len(raw))
	}
	out := make([]any, len(raw))
	for i, v := range raw {
		coerced, err := coerceArg(inputs[i].Type.String(), v)
		if err != nil {
			return nil, errs.Validationf("arg %q: %v", inputs[i].Name, err)
		}
		out[i] = coerced
	}
	return out, nil
}

func coerceArg(abiType string, v any) (any, error) {
	switch {
	case abiType == "string":
		s, ok := v.(string)
		if !ok {
			return nil, errs.Newf(errs.KindValidation, "want string, got %T", v)
		}
		return s, nil

	case abiType == "address":
		s, ok := v.(string)
		if !ok || !common.IsHexAddress(s) {
			return nil, errs.Newf(errs.KindValidation, "want hex address, got %v", v)
		}
		return common.HexToAddress(s), nil

	case abiType == "bool":
		b, ok := v.(bool)
		if !ok {
			return nil, errs.Newf(errs.KindValidation, "want bool, got %T", v)
		}
		return b, nil

	case abiType == "uint8":
		n, err := coerceBig(v)
		if err != nil {
			return nil, err
		}
		if !n.IsUint64() || n.Uint64() > 255 {
			return nil, errs.Newf(errs.KindValidation, "value %s out of uint8 range", n)
		}
		return uint8(n.Uint64()), nil

	case abiType == "uint16":
		n, err := coerceBig(v)
		if err != nil {
			return nil, err
		}
		return uint16(n.Uint64()), nil

	case abiType == "uint32":
		n, err := coerceBig(v)
		if err != nil {
			return nil, err
		}
		return uint32(n.Uint64()), nil

	case abiType == "uint64":
		n, err := coerceBig(v)
		if err != nil {
			return nil, err
		}
		return n.Uint64(), nil

	case strings.HasPrefix(abiType, "uint"), strings.HasPrefix(abiType, "int"):
		// Remaining widths (uint96, uint128, uint256, int256...) pack
		// as *big.Int.
		return coerceBig(v)

	default:
		// Bytes and composite types pass through untouched; the packer
		// reports a mismatch if the caller got it wrong.
		return v, nil
	}
}

func coerceBig(v any) (*big.Int, error) {
	switch n := v.(type) {
	case *big.Int:
		return n, nil
	case string:
		parsed, ok := new(big.Int).SetString(n, 10)
		if !ok {
			return nil, errs.Newf(errs.KindValidation, "invalid integer %q", n)
		}
		return parsed, nil
	case float64:
		if n != float64(int64(n)) {
			return nil, errs.Newf(errs.KindValidation, "non-integral number %v", n)
		}
		return big.NewInt(int64(n)), nil
	case int:
		return big.NewInt(int64(n)), nil
	case int64:
		return big.NewInt(n), nil
	case uint64:
		return new(big.Int).SetUint64(n), nil
	default:
		return nil, errs.Newf(errs.KindValidation, "want integer, got %T", v)
	}
}
